package target

import (
	"errors"
	"fmt"
	"os"

	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every catalog validation error.
var ErrConfig = errors.New("invalid register catalog")

// DefaultRequired lists the type classes every catalog must be able to
// hold in registers unless it declares its own list.
var DefaultRequired = []ctypes.Class{ctypes.ClassInteger, ctypes.ClassPointer, ctypes.ClassFloat}

// Catalog is the set of physical resources of one target.
type Catalog struct {
	Name        string
	Groups      []*Group
	Suppliers   []*Supplier
	CalleeSaved []Reg

	regs map[string]Reg
}

// Lookup finds a register view by name.
func (c *Catalog) Lookup(name string) (Reg, bool) {
	r, ok := c.regs[name]
	return r, ok
}

// SupplierFor returns the supplier owning values of type t: the first one
// whose predicate accepts it. Returns nil if none does.
func (c *Catalog) SupplierFor(t ctypes.Type) *Supplier {
	for _, s := range c.Suppliers {
		if s.Accepts(t) {
			return s
		}
	}
	return nil
}

// IsCalleeSaved reports whether r overlaps a callee-saved register.
func (c *Catalog) IsCalleeSaved(r Reg) bool {
	for _, saved := range c.CalleeSaved {
		if saved.Intersects(r) {
			return true
		}
	}
	return false
}

// Priority orders registers by supplier preference, for stable output.
// Registers not handed out by any supplier sort last.
func (c *Catalog) Priority(r Reg) int {
	base := 0
	for _, s := range c.Suppliers {
		if i := s.Index(r); i >= 0 {
			return base + i
		}
		base += s.Count()
	}
	return base
}

// catalogFile is the YAML form of a catalog.
type catalogFile struct {
	Name        string         `yaml:"name"`
	Groups      []groupFile    `yaml:"groups"`
	Suppliers   []supplierFile `yaml:"suppliers"`
	CalleeSaved []string       `yaml:"callee_saved"`
	Required    []string       `yaml:"required,omitempty"`
}

type groupFile struct {
	Name  string     `yaml:"name"`
	Views []viewFile `yaml:"views"`
}

type viewFile struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	Offset int64  `yaml:"offset,omitempty"`
}

type supplierFile struct {
	Name      string   `yaml:"name"`
	Accepts   []string `yaml:"accepts"`
	Registers []string `yaml:"registers"`
}

// LoadCatalogFile reads and validates a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadCatalog(data)
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return f.build()
}

func configErr(catalog, format string, args ...any) error {
	return fmt.Errorf("%w: catalog %q: %s", ErrConfig, catalog, fmt.Sprintf(format, args...))
}

func (f *catalogFile) build() (*Catalog, error) {
	c := &Catalog{Name: f.Name, regs: make(map[string]Reg)}

	for _, gf := range f.Groups {
		if len(gf.Views) == 0 {
			return nil, configErr(f.Name, "group %q has no views", gf.Name)
		}
		g := &Group{Name: gf.Name}
		width := gf.Views[0].Size
		for _, vf := range gf.Views {
			if vf.Size <= 0 || vf.Offset < 0 || vf.Offset+vf.Size > width {
				return nil, configErr(f.Name, "register %q does not fit its group %q", vf.Name, gf.Name)
			}
			if _, dup := c.regs[vf.Name]; dup {
				return nil, configErr(f.Name, "register %q declared twice", vf.Name)
			}
			r := Reg{Name: vf.Name, Size: vf.Size, Offset: vf.Offset, Group: g}
			g.Views = append(g.Views, r)
			c.regs[vf.Name] = r
		}
		c.Groups = append(c.Groups, g)
	}

	for _, sf := range f.Suppliers {
		classes, err := parseClasses(f.Name, sf.Accepts)
		if err != nil {
			return nil, err
		}
		s := &Supplier{Name: sf.Name, Accepts: AcceptClasses(classes...)}
		for _, name := range sf.Registers {
			r, ok := c.regs[name]
			if !ok {
				return nil, configErr(f.Name, "supplier %q lists unknown register %q", sf.Name, name)
			}
			if s.Overlaps(r) {
				return nil, configErr(f.Name, "supplier %q lists register %q twice", sf.Name, name)
			}
			s.Registers = append(s.Registers, r)
		}
		if len(s.Registers) == 0 {
			// An empty supplier would claim types it cannot hold.
			continue
		}
		c.Suppliers = append(c.Suppliers, s)
	}

	for _, name := range f.CalleeSaved {
		r, ok := c.regs[name]
		if !ok {
			return nil, configErr(f.Name, "unknown callee-saved register %q", name)
		}
		c.CalleeSaved = append(c.CalleeSaved, r)
	}

	required := DefaultRequired
	if len(f.Required) > 0 {
		var err error
		if required, err = parseClasses(f.Name, f.Required); err != nil {
			return nil, err
		}
	}
	for _, class := range required {
		if !c.holds(class) {
			return nil, configErr(f.Name, "no registers for type class %s", class)
		}
	}
	return c, nil
}

// holds reports whether some supplier accepts values of class.
func (c *Catalog) holds(class ctypes.Class) bool {
	var probe ctypes.Type
	switch class {
	case ctypes.ClassInteger:
		probe = ctypes.Long()
	case ctypes.ClassPointer:
		probe = ctypes.Pointer(ctypes.Void())
	case ctypes.ClassFloat:
		probe = ctypes.Double()
	case ctypes.ClassAggregate:
		probe = ctypes.Array(ctypes.Char(), 1)
	default:
		return true
	}
	return c.SupplierFor(probe) != nil
}

func parseClasses(catalog string, names []string) ([]ctypes.Class, error) {
	classes := make([]ctypes.Class, 0, len(names))
	for _, name := range names {
		class, ok := ctypes.ParseClass(name)
		if !ok {
			return nil, configErr(catalog, "unknown type class %q", name)
		}
		classes = append(classes, class)
	}
	return classes, nil
}
