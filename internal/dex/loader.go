package dex

import (
	"encoding/json"
	"io"

	apperrors "github.com/dexmerge/pkg/errors"
)

// ============================================================================
// Program image loader
// ============================================================================

// ImageClass is the serialized form of a class in a program image dump.
type ImageClass struct {
	Name        string        `json:"name"`
	Super       string        `json:"super,omitempty"`
	Interfaces  []string      `json:"interfaces,omitempty"`
	Annotations []string      `json:"annotations,omitempty"`
	Interface   bool          `json:"interface,omitempty"`
	Abstract    bool          `json:"abstract,omitempty"`
	Fields      []ImageField  `json:"fields,omitempty"`
	Methods     []ImageMethod `json:"methods,omitempty"`

	// Refs lists the types this class references from its code.
	Refs []string `json:"refs,omitempty"`
}

// ImageField is the serialized form of a field.
type ImageField struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
	Static     bool   `json:"static,omitempty"`
}

// ImageMethod is the serialized form of a method. Body carries the
// canonical instruction listing; only its fingerprint is retained.
type ImageMethod struct {
	Name     string `json:"name"`
	Proto    string `json:"proto"`
	Virtual  bool   `json:"virtual,omitempty"`
	Abstract bool   `json:"abstract,omitempty"`
	Native   bool   `json:"native,omitempty"`
	CodeSize int    `json:"code_size,omitempty"`
	Body     string `json:"body,omitempty"`
}

// ImageDex is the serialized form of one dex container.
type ImageDex struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// Image is a program image dump: the class scope, the dex layout and the
// type-like string constants observed in the program.
type Image struct {
	Classes     []ImageClass `json:"classes"`
	Dexes       []ImageDex   `json:"dexes,omitempty"`
	TypeStrings []string     `json:"type_strings,omitempty"`
}

// Program is a materialized program image.
type Program struct {
	Scope  *Scope
	Stores *StoresVector
	Index  *TypeIndex

	// TypeStrings holds types whose descriptors appear as string constants
	// somewhere in the program; reflection may depend on their names.
	TypeStrings *TypeSet
}

// LoadImage reads a program image dump and materializes it over the given
// type index. When the dump carries no dex layout, a single dex holding
// every class is assumed.
func LoadImage(r io.Reader, ix *TypeIndex) (*Program, error) {
	var img Image
	if err := json.NewDecoder(r).Decode(&img); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeImageError, "failed to decode program image", err)
	}
	return BuildImage(&img, ix)
}

// BuildImage materializes a decoded image.
func BuildImage(img *Image, ix *TypeIndex) (*Program, error) {
	classes := make([]*Class, 0, len(img.Classes))
	for _, ic := range img.Classes {
		cls, err := buildClass(&ic, ix)
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	scope := NewScope(classes)

	var dexes []Dex
	if len(img.Dexes) == 0 {
		all := make([]*Type, len(classes))
		for i, cls := range classes {
			all[i] = cls.Type
		}
		dexes = []Dex{{Name: "classes.dex", Types: all}}
	} else {
		for _, id := range img.Dexes {
			d := Dex{Name: id.Name, Types: make([]*Type, 0, len(id.Types))}
			for _, name := range id.Types {
				d.Types = append(d.Types, ix.Intern(name))
			}
			dexes = append(dexes, d)
		}
	}

	typeStrings := NewTypeSet()
	for _, name := range img.TypeStrings {
		typeStrings.Insert(ix.Intern(name))
	}

	return &Program{
		Scope:       scope,
		Stores:      NewStoresVector(dexes),
		Index:       ix,
		TypeStrings: typeStrings,
	}, nil
}

func buildClass(ic *ImageClass, ix *TypeIndex) (*Class, error) {
	if ic.Name == "" {
		return nil, apperrors.New(apperrors.CodeImageError, "class without a name")
	}

	cls := &Class{
		Type:   ix.Intern(ic.Name),
		Access: AccPublic,
	}
	if ic.Super != "" {
		cls.Super = ix.Intern(ic.Super)
	}
	if ic.Interface {
		cls.Access |= AccInterface | AccAbstract
	}
	if ic.Abstract {
		cls.Access |= AccAbstract
	}
	for _, name := range ic.Interfaces {
		cls.Interfaces = append(cls.Interfaces, ix.Intern(name))
	}
	for _, name := range ic.Annotations {
		cls.Annotations = append(cls.Annotations, ix.Intern(name))
	}
	for _, name := range ic.Refs {
		cls.Refs = append(cls.Refs, ix.Intern(name))
	}

	for _, f := range ic.Fields {
		category, err := CategoryOf(f.Descriptor)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeImageError, "class "+ic.Name, err)
		}
		cls.Fields = append(cls.Fields, Field{
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Category:   category,
			Static:     f.Static,
		})
	}

	for _, m := range ic.Methods {
		method := &Method{
			Name:     m.Name,
			Proto:    m.Proto,
			Virtual:  m.Virtual,
			CodeSize: m.CodeSize,
			Access:   AccPublic,
		}
		if m.Abstract {
			method.Access |= AccAbstract
		}
		if m.Native {
			method.Access |= AccNative
		}
		if m.Body != "" {
			method.BodyHash = HashBody(m.Body)
			if method.CodeSize == 0 {
				method.CodeSize = len(m.Body)
			}
		}
		cls.Methods = append(cls.Methods, method)
	}

	return cls, nil
}
