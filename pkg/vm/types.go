// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

type OpType int

const (
	Group OpType = iota
	Window
	Source
	Sink
)

var opNames = [...]string{
	Group:  "preclustered_group",
	Window: "window",
	Source: "source",
	Sink:   "sink",
}

func (op OpType) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown"
}
