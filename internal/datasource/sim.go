package datasource

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// SimDirectory is the built-in simulated address space: a small industrial
// plant with a server area, a device set and a block of simulation signals,
// plus a type hierarchy so every node class shows up somewhere. The space is
// generated once from a seed; the same seed always produces the same tree
// and the same values.
//
// The sim is always connected. Disconnect behavior is exercised against
// test doubles, not here.
type SimDirectory struct {
	seed  int64
	root  addrspace.NodeRef
	kids  map[addrspace.NodeRef][]addrspace.Descriptor
	attrs map[addrspace.NodeRef][]addrspace.Attribute
}

// NewSimDirectory builds the simulated space from a seed.
func NewSimDirectory(seed int64) *SimDirectory {
	d := &SimDirectory{
		seed:  seed,
		root:  "i=84",
		kids:  make(map[addrspace.NodeRef][]addrspace.Descriptor),
		attrs: make(map[addrspace.NodeRef][]addrspace.Attribute),
	}
	b := &simBuilder{rng: rand.New(rand.NewSource(seed)), dir: d}
	b.build()
	d.fixChildHints()
	return d
}

// Seed returns the seed the space was generated from.
func (d *SimDirectory) Seed() int64 { return d.seed }

// IsConnected always reports true for the simulated space.
func (d *SimDirectory) IsConnected() bool { return true }

// Root returns the top-level container ref.
func (d *SimDirectory) Root() addrspace.NodeRef { return d.root }

// Browse returns a copy of the node's children. Callers sort the returned
// slice, so sharing the backing array would corrupt the space.
func (d *SimDirectory) Browse(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kids := d.kids[ref]
	out := make([]addrspace.Descriptor, len(kids))
	copy(out, kids)
	return out, nil
}

// ReadAttributes returns a copy of the node's attribute rows.
func (d *SimDirectory) ReadAttributes(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	attrs := d.attrs[ref]
	out := make([]addrspace.Attribute, len(attrs))
	copy(out, attrs)
	return out, nil
}

// fixChildHints sets HasChildren on every descriptor from the actual edge
// map, so the hint is never stale inside the sim.
func (d *SimDirectory) fixChildHints() {
	for _, list := range d.kids {
		for i := range list {
			list[i].HasChildren = len(d.kids[list[i].Ref]) > 0
		}
	}
}

type simBuilder struct {
	rng *rand.Rand
	dir *SimDirectory
}

func (b *simBuilder) add(parent addrspace.NodeRef, desc addrspace.Descriptor, extra ...addrspace.Attribute) addrspace.NodeRef {
	b.dir.kids[parent] = append(b.dir.kids[parent], desc)
	attrs := []addrspace.Attribute{
		{Name: "NodeId", Value: desc.Ref.String(), Good: true},
		{Name: "BrowseName", Value: desc.BrowseName, Good: true},
		{Name: "DisplayName", Value: desc.DisplayName, Good: true},
		{Name: "NodeClass", Value: desc.Class.String(), Good: true},
	}
	b.dir.attrs[desc.Ref] = append(attrs, extra...)
	return desc.Ref
}

func (b *simBuilder) object(parent addrspace.NodeRef, ref, name string) addrspace.NodeRef {
	return b.add(parent, addrspace.Descriptor{
		Ref: addrspace.NodeRef(ref), BrowseName: name, DisplayName: name, Class: addrspace.ClassObject,
	})
}

func (b *simBuilder) variable(parent addrspace.NodeRef, ref, name string, extra ...addrspace.Attribute) addrspace.NodeRef {
	return b.add(parent, addrspace.Descriptor{
		Ref: addrspace.NodeRef(ref), BrowseName: name, DisplayName: name, Class: addrspace.ClassVariable,
	}, extra...)
}

func (b *simBuilder) method(parent addrspace.NodeRef, ref, name string) addrspace.NodeRef {
	return b.add(parent, addrspace.Descriptor{
		Ref: addrspace.NodeRef(ref), BrowseName: name, DisplayName: name, Class: addrspace.ClassMethod,
	})
}

func (b *simBuilder) typed(parent addrspace.NodeRef, ref, name string, class addrspace.NodeClass) addrspace.NodeRef {
	return b.add(parent, addrspace.Descriptor{
		Ref: addrspace.NodeRef(ref), BrowseName: name, DisplayName: name, Class: class,
	})
}

// measurement returns a seeded value attribute pair for a sensor variable.
func (b *simBuilder) measurement(lo, hi float64, unit string) []addrspace.Attribute {
	v := lo + b.rng.Float64()*(hi-lo)
	return []addrspace.Attribute{
		{Name: "Value", Value: fmt.Sprintf("%.2f", v), Good: true},
		{Name: "DataType", Value: "Double", Good: true},
		{Name: "EngineeringUnits", Value: unit, Good: true},
	}
}

func (b *simBuilder) build() {
	root := b.dir.root
	b.dir.attrs[root] = []addrspace.Attribute{
		{Name: "NodeId", Value: root.String(), Good: true},
		{Name: "BrowseName", Value: "Root", Good: true},
		{Name: "DisplayName", Value: "Root", Good: true},
		{Name: "NodeClass", Value: addrspace.ClassObject.String(), Good: true},
	}

	objects := b.object(root, "i=85", "Objects")
	types := b.object(root, "i=86", "Types")
	views := b.object(root, "i=87", "Views")

	b.buildServer(objects)
	b.buildDeviceSet(objects)
	b.buildSimulation(objects)
	b.buildTypes(types)

	b.add(views, addrspace.Descriptor{
		Ref: "ns=2;s=EngineeringView", BrowseName: "EngineeringView",
		DisplayName: "EngineeringView", Class: addrspace.ClassView,
	})
}

func (b *simBuilder) buildServer(objects addrspace.NodeRef) {
	server := b.object(objects, "i=2253", "Server")

	b.variable(server, "i=2256", "ServerStatus",
		addrspace.Attribute{Name: "Value", Value: "Running", Good: true},
		addrspace.Attribute{Name: "StartTime", Value: "2026-01-05T08:00:00Z", Good: true},
	)
	b.method(server, "i=11492", "GetMonitoredItems")

	caps := b.object(server, "i=2268", "ServerCapabilities")
	b.variable(caps, "i=2735", "MaxBrowseContinuationPoints",
		addrspace.Attribute{Name: "Value", Value: "10", Good: true},
		addrspace.Attribute{Name: "DataType", Value: "UInt16", Good: true},
	)
	b.variable(caps, "i=11702", "MaxArrayLength",
		addrspace.Attribute{Name: "Value", Value: "65535", Good: true},
		addrspace.Attribute{Name: "DataType", Value: "UInt32", Good: true},
	)

	namespaces := b.object(server, "i=11715", "Namespaces")
	uris := []string{
		"http://opcfoundation.org/UA/",
		"urn:spacewalk:sim",
		"http://spacewalk.dev/plant/",
	}
	for i, uri := range uris {
		b.variable(namespaces, fmt.Sprintf("ns=1;s=Namespace%d", i), fmt.Sprintf("Namespace %d", i),
			addrspace.Attribute{Name: "Value", Value: uri, Good: true},
			addrspace.Attribute{Name: "DataType", Value: "String", Good: true},
		)
	}
}

func (b *simBuilder) buildDeviceSet(objects addrspace.NodeRef) {
	deviceSet := b.object(objects, "ns=2;i=5001", "DeviceSet")

	kinds := []string{"Pump", "Valve", "Compressor", "Boiler", "Conveyor", "Turbine"}
	statuses := []string{"Running", "Running", "Running", "Stopped", "Fault"}

	count := 3 + b.rng.Intn(3)
	flaky := b.rng.Intn(count)

	for i := 0; i < count; i++ {
		kind := kinds[b.rng.Intn(len(kinds))]
		name := fmt.Sprintf("%s-%02d", kind, i+1)
		base := "ns=2;s=" + name

		dev := b.object(deviceSet, base, name)

		b.variable(dev, base+".FlowRate", "FlowRate", b.measurement(5, 120, "l/min")...)
		b.variable(dev, base+".Pressure", "Pressure", b.measurement(0.5, 16, "bar")...)
		b.variable(dev, base+".Temperature", "Temperature", b.measurement(15, 95, "°C")...)
		b.variable(dev, base+".Status", "Status",
			addrspace.Attribute{Name: "Value", Value: statuses[b.rng.Intn(len(statuses))], Good: true},
			addrspace.Attribute{Name: "DataType", Value: "String", Good: true},
		)
		b.method(dev, base+".Reset", "Reset")

		// One device per space reports a sensor with bad quality, so the
		// value-match path that skips bad readings has something to skip.
		if i == flaky {
			b.variable(dev, base+".Vibration", "Vibration",
				addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("%.2f", b.rng.Float64()*4), Good: false},
				addrspace.Attribute{Name: "EngineeringUnits", Value: "mm/s", Good: true},
			)
		}

		diag := b.object(dev, base+".Diagnostics", "Diagnostics")
		b.variable(diag, base+".Diagnostics.CycleCount", "CycleCount",
			addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("%d", 1000+b.rng.Intn(900000)), Good: true},
			addrspace.Attribute{Name: "DataType", Value: "UInt32", Good: true},
		)
		b.variable(diag, base+".Diagnostics.LastService", "LastService",
			addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("2025-%02d-%02d", 1+b.rng.Intn(12), 1+b.rng.Intn(28)), Good: true},
			addrspace.Attribute{Name: "DataType", Value: "DateTime", Good: true},
		)

		errorLog := b.object(diag, base+".Diagnostics.ErrorLog", "ErrorLog")
		for e := 0; e < 1+b.rng.Intn(3); e++ {
			b.variable(errorLog, fmt.Sprintf("%s.Diagnostics.ErrorLog.Entry-%02d", base, e+1),
				fmt.Sprintf("Entry-%02d", e+1),
				addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("E%04d transient fault", b.rng.Intn(10000)), Good: true},
			)
		}
	}
}

func (b *simBuilder) buildSimulation(objects addrspace.NodeRef) {
	sim := b.object(objects, "ns=5;i=1001", "Simulation")

	signals := []struct {
		name string
		lo   float64
		hi   float64
	}{
		{"Random", 0, 1},
		{"Sawtooth", -1, 1},
		{"Sine", -1, 1},
		{"Square", -1, 1},
		{"Triangle", -1, 1},
	}
	for _, sig := range signals {
		v := sig.lo + b.rng.Float64()*(sig.hi-sig.lo)
		b.variable(sim, "ns=5;s="+sig.name, sig.name,
			addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("%.4f", v), Good: true},
			addrspace.Attribute{Name: "DataType", Value: "Double", Good: true},
		)
	}
	b.variable(sim, "ns=5;s=Counter", "Counter",
		addrspace.Attribute{Name: "Value", Value: fmt.Sprintf("%d", b.rng.Intn(100000)), Good: true},
		addrspace.Attribute{Name: "DataType", Value: "UInt64", Good: true},
	)
}

func (b *simBuilder) buildTypes(types addrspace.NodeRef) {
	objectTypes := b.object(types, "i=88", "ObjectTypes")
	base := b.typed(objectTypes, "i=58", "BaseObjectType", addrspace.ClassObjectType)
	b.typed(base, "i=61", "FolderType", addrspace.ClassObjectType)

	variableTypes := b.object(types, "i=89", "VariableTypes")
	baseVar := b.typed(variableTypes, "i=62", "BaseVariableType", addrspace.ClassVariableType)
	b.typed(baseVar, "i=63", "BaseDataVariableType", addrspace.ClassVariableType)

	dataTypes := b.object(types, "i=90", "DataTypes")
	baseData := b.typed(dataTypes, "i=24", "BaseDataType", addrspace.ClassDataType)
	b.typed(baseData, "i=1", "Boolean", addrspace.ClassDataType)
	b.typed(baseData, "i=11", "Double", addrspace.ClassDataType)
	b.typed(baseData, "i=6", "Int32", addrspace.ClassDataType)
	b.typed(baseData, "i=12", "String", addrspace.ClassDataType)

	refTypes := b.object(types, "i=91", "ReferenceTypes")
	refs := b.typed(refTypes, "i=31", "References", addrspace.ClassReferenceType)
	b.typed(refs, "i=35", "Organizes", addrspace.ClassReferenceType)
	b.typed(refs, "i=47", "HasComponent", addrspace.ClassReferenceType)
	b.typed(refs, "i=46", "HasProperty", addrspace.ClassReferenceType)
}
