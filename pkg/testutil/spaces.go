package testutil

import (
	"fmt"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// Descriptor shorthands. HasChildren is left false; FakeDirectory recomputes
// the hint from actual fixture contents when browsing.

// Object returns an Object-class descriptor.
func Object(ref addrspace.NodeRef, name string) addrspace.Descriptor {
	return addrspace.Descriptor{Ref: ref, BrowseName: name, DisplayName: name, Class: addrspace.ClassObject}
}

// Variable returns a Variable-class descriptor.
func Variable(ref addrspace.NodeRef, name string) addrspace.Descriptor {
	return addrspace.Descriptor{Ref: ref, BrowseName: name, DisplayName: name, Class: addrspace.ClassVariable}
}

// Method returns a Method-class descriptor.
func Method(ref addrspace.NodeRef, name string) addrspace.Descriptor {
	return addrspace.Descriptor{Ref: ref, BrowseName: name, DisplayName: name, Class: addrspace.ClassMethod}
}

// Desc returns a descriptor with an explicit class.
func Desc(ref addrspace.NodeRef, name string, class addrspace.NodeClass) addrspace.Descriptor {
	return addrspace.Descriptor{Ref: ref, BrowseName: name, DisplayName: name, Class: class}
}

// DemoSpace builds the canonical demo layout used across tests:
//
//	Objects (root)
//	├── Server          Object
//	│   └── ServerStatus  Variable
//	├── DeviceSet       Object
//	│   ├── Pump        Object
//	│   │   └── FlowRate  Variable
//	│   └── Valve       Object
//	└── Simulation      Object
//	    ├── Random      Variable
//	    └── Sawtooth    Variable
func DemoSpace() *FakeDirectory {
	f := NewFakeDirectory("i=85")
	f.Add("i=85",
		Object("i=2253", "Server"),
		Object("ns=2;i=5001", "DeviceSet"),
		Object("ns=5;i=1001", "Simulation"),
	)
	f.Add("i=2253", Variable("i=2256", "ServerStatus"))
	f.Add("ns=2;i=5001",
		Object("ns=2;s=Pump", "Pump"),
		Object("ns=2;s=Valve", "Valve"),
	)
	f.Add("ns=2;s=Pump", Variable("ns=2;s=Pump.FlowRate", "FlowRate"))
	f.Add("ns=5;i=1001",
		Variable("ns=5;s=Random", "Random"),
		Variable("ns=5;s=Sawtooth", "Sawtooth"),
	)
	f.SetAttrs("ns=5;s=Random",
		addrspace.Attribute{Name: "NodeId", Value: "ns=5;s=Random", Good: true},
		addrspace.Attribute{Name: "DisplayName", Value: "Random", Good: true},
		addrspace.Attribute{Name: "Value", Value: "0.4271", Good: true},
	)
	f.SetAttrs("ns=2;s=Pump.FlowRate",
		addrspace.Attribute{Name: "NodeId", Value: "ns=2;s=Pump.FlowRate", Good: true},
		addrspace.Attribute{Name: "Value", Value: "13.7 l/min", Good: true},
		addrspace.Attribute{Name: "EngineeringUnits", Value: "l/min", Good: true},
	)
	return f
}

// BalancedSpace builds a uniform tree for property and load tests: every
// interior node is an Object with fanout children, leaves are Variables.
// Depth counts levels below the root, so BalancedSpace(2, 3) has 3 objects
// under the root and 9 variables below those. Refs encode the path so the
// layout is fully deterministic.
func BalancedSpace(depth, fanout int) *FakeDirectory {
	f := NewFakeDirectory("root")
	var fill func(parent addrspace.NodeRef, level int)
	fill = func(parent addrspace.NodeRef, level int) {
		if level > depth {
			return
		}
		for i := 0; i < fanout; i++ {
			ref := addrspace.NodeRef(fmt.Sprintf("%s/%d", parent, i))
			name := fmt.Sprintf("Node %s", ref)
			if level == depth {
				f.Add(parent, Variable(ref, name))
			} else {
				f.Add(parent, Object(ref, name))
				fill(ref, level+1)
			}
		}
	}
	fill("root", 1)
	return f
}

// CyclicSpace builds a small graph containing a cycle: A -> B -> A. The
// visited set must keep traversals over it finite.
func CyclicSpace() *FakeDirectory {
	f := NewFakeDirectory("root")
	f.Add("root", Object("A", "Alpha"))
	f.Add("A", Object("B", "Beta"))
	f.Add("B", Object("A", "Alpha"))
	return f
}
