/*
 *  Copyright 2022 Square Inc.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package failinject

import (
	"fmt"
	"sync"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
)

// Failpoint names. Tests activate these to make the named operation fail.
const (
	// SpillWrite fires when a temp row store is about to write rows.
	SpillWrite = "spill_write"
	// ReleaseStorage fires when a temp row store is about to delete its key range.
	ReleaseStorage = "release_storage"
)

func NewInjector() Injector {
	return &defaultInjector{failpoints: make(map[string]*defaultFailpoint)}
}

type Injector interface {
	RegisterFailpoint(name string) (Failpoint, error)
	GetFailpoint(name string) Failpoint
	Start() error
	Stop() error
}

type Failpoint interface {
	CheckFail() error
	SetFailAction(action FailAction)
	Deactivate()
}

type FailAction func() error

type defaultInjector struct {
	failpoints map[string]*defaultFailpoint
	lock       sync.Mutex
}

type defaultFailpoint struct {
	name       string
	active     common.AtomicBool
	failAction FailAction
}

func (i *defaultInjector) RegisterFailpoint(name string) (Failpoint, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	fp := &defaultFailpoint{
		name: name,
	}
	i.failpoints[name] = fp
	return fp, nil
}

func (i *defaultInjector) GetFailpoint(name string) Failpoint {
	i.lock.Lock()
	defer i.lock.Unlock()
	fp, ok := i.failpoints[name]
	if !ok {
		panic(fmt.Sprintf("no failpoint registered with name %s", name))
	}
	return fp
}

func (f *defaultFailpoint) CheckFail() error {
	if !f.active.Get() {
		return nil
	}
	if f.failAction == nil {
		return errors.Errorf("no fail action specfied for failpoint %s", f.name)
	}
	return f.failAction()
}

func (f *defaultFailpoint) SetFailAction(action FailAction) {
	f.failAction = action
	f.active.Set(true)
}

func (f *defaultFailpoint) Deactivate() {
	f.active.Set(false)
	f.failAction = nil
}

func (i *defaultInjector) Start() error {
	return i.registerFailpoints()
}

func (i *defaultInjector) Stop() error {
	return nil
}

func (i *defaultInjector) registerFailpoints() error {
	_, err := i.RegisterFailpoint(SpillWrite)
	if err != nil {
		return err
	}
	_, err = i.RegisterFailpoint(ReleaseStorage)
	return err
}
