package dex

import (
	"github.com/cespare/xxhash/v2"

	apperrors "github.com/dexmerge/pkg/errors"
)

// FieldCategory classifies an instance field for shape computation.
// Strings are tracked separately from other references because merged
// classes fold string fields into a shared string table downstream.
type FieldCategory int

const (
	CategoryString FieldCategory = iota
	CategoryReference
	CategoryBool
	CategoryInt
	CategoryLong
	CategoryDouble
	CategoryFloat
)

// String returns the field category name.
func (c FieldCategory) String() string {
	switch c {
	case CategoryString:
		return "string"
	case CategoryReference:
		return "reference"
	case CategoryBool:
		return "bool"
	case CategoryInt:
		return "int"
	case CategoryLong:
		return "long"
	case CategoryDouble:
		return "double"
	case CategoryFloat:
		return "float"
	default:
		return "unknown"
	}
}

const javaLangString = "Ljava/lang/String;"

// CategoryOf maps a field descriptor to its shape category.
// byte, short and char widen to int slots; arrays count as references.
func CategoryOf(descriptor string) (FieldCategory, error) {
	if descriptor == javaLangString {
		return CategoryString, nil
	}
	if descriptor == "" {
		return 0, apperrors.New(apperrors.CodeImageError, "empty field descriptor")
	}
	switch descriptor[0] {
	case 'L', '[':
		return CategoryReference, nil
	case 'J':
		return CategoryLong, nil
	case 'D':
		return CategoryDouble, nil
	case 'F':
		return CategoryFloat, nil
	case 'Z':
		return CategoryBool, nil
	case 'B', 'S', 'C', 'I':
		return CategoryInt, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeImageError, "unsupported field descriptor %q", descriptor)
	}
}

// Access flags, a subset of the JVM access flag space.
type Access uint32

const (
	AccPublic    Access = 0x0001
	AccStatic    Access = 0x0008
	AccFinal     Access = 0x0010
	AccNative    Access = 0x0100
	AccInterface Access = 0x0200
	AccAbstract  Access = 0x0400
)

// Field is a class field.
type Field struct {
	Name       string
	Descriptor string
	Category   FieldCategory
	Static     bool
}

// Method is a class method. BodyHash fingerprints the canonical instruction
// body; two methods with equal name, proto and BodyHash are interchangeable
// for the virtual method distribution phase.
type Method struct {
	Name     string
	Proto    string
	Access   Access
	Virtual  bool
	CodeSize int
	BodyHash uint64
}

// HashBody computes the body fingerprint used by Method.BodyHash.
func HashBody(body string) uint64 {
	return xxhash.Sum64String(body)
}

// Abstract reports whether the method has no body.
func (m *Method) Abstract() bool {
	return m.Access&AccAbstract != 0
}

// Class is a loaded class definition.
type Class struct {
	Type        *Type
	Super       *Type
	Interfaces  []*Type
	Annotations []*Type
	Access      Access
	Fields      []Field
	Methods     []*Method

	// Refs are the types referenced from the class body, used by the
	// all-type-refs interdex inference mode.
	Refs []*Type
}

// IsInterface reports whether the class is an interface definition.
func (c *Class) IsInterface() bool {
	return c.Access&AccInterface != 0
}

// InstanceFields returns the non-static fields in declaration order.
func (c *Class) InstanceFields() []Field {
	fields := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if !f.Static {
			fields = append(fields, f)
		}
	}
	return fields
}

// StaticFields returns the static fields in declaration order.
func (c *Class) StaticFields() []Field {
	fields := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Static {
			fields = append(fields, f)
		}
	}
	return fields
}

// VirtualMethods returns the virtual methods in declaration order.
func (c *Class) VirtualMethods() []*Method {
	methods := make([]*Method, 0, len(c.Methods))
	for _, m := range c.Methods {
		if m.Virtual {
			methods = append(methods, m)
		}
	}
	return methods
}

// FindVirtualMethod returns the virtual method with the given name and
// proto, or nil.
func (c *Class) FindVirtualMethod(name, proto string) *Method {
	for _, m := range c.Methods {
		if m.Virtual && m.Name == name && m.Proto == proto {
			return m
		}
	}
	return nil
}

// HasNativeMethods reports whether any method is native.
func (c *Class) HasNativeMethods() bool {
	for _, m := range c.Methods {
		if m.Access&AccNative != 0 {
			return true
		}
	}
	return false
}

// CodeSize returns the summed code size of all methods, the unit used by
// the by-code-size splitting strategy.
func (c *Class) CodeSize() int {
	size := 0
	for _, m := range c.Methods {
		size += m.CodeSize
	}
	return size
}
