// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package idl

import (
	"fmt"
	"strconv"
)

var scalarKeywords = map[string]bool{
	"int8": true, "uint8": true, "byte": true, "ubyte": true,
	"int16": true, "uint16": true, "short": true, "ushort": true,
	"int32": true, "uint32": true, "int": true, "uint": true,
	"int64": true, "uint64": true, "long": true, "ulong": true,
	"float32": true, "float": true, "float64": true, "double": true,
}

// Parse parses src as one IDL schema file.
func Parse(src string) (*Schema, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseSchema()
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("idl: line %d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

func (p *parser) expectPunct(s string) error {
	if p.tok.kind != tokPunct || p.tok.text != s {
		return p.errorf("expected %q, got %q", s, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf("expected identifier, got %q", p.tok.text)
	}
	s := p.tok.text
	return s, p.advance()
}

func (p *parser) parseSchema() (*Schema, error) {
	s := &Schema{}
	for p.tok.kind != tokEOF {
		if p.tok.kind != tokIdent {
			return nil, p.errorf("unexpected token %q", p.tok.text)
		}
		var err error
		switch p.tok.text {
		case "namespace":
			err = p.parseNamespace(s)
		case "file_identifier":
			err = p.parseFileIdentifier(s)
		case "root_type":
			err = p.parseRootType(s)
		case "table":
			err = p.parseTable(s)
		case "struct":
			err = p.parseStruct(s)
		case "enum":
			err = p.parseEnum(s)
		case "union":
			err = p.parseUnion(s)
		default:
			return nil, p.errorf("unknown top-level declaration %q", p.tok.text)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) parseNamespace(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name := p.tok.text
	for {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind == tokPunct && p.tok.text == "." {
			if err := p.advance(); err != nil {
				return err
			}
			name += "." + p.tok.text
			continue
		}
		break
	}
	s.Namespace = name
	return p.expectPunct(";")
}

func (p *parser) parseFileIdentifier(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tokString {
		return p.errorf("expected string literal after file_identifier")
	}
	s.FileIdentifier = p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	return p.expectPunct(";")
}

func (p *parser) parseRootType(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	s.RootType = name
	return p.expectPunct(";")
}

func (p *parser) parseTable(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	fields, err := p.parseFieldBlock()
	if err != nil {
		return err
	}
	s.Tables = append(s.Tables, &Table{Name: name, Fields: fields})
	return nil
}

func (p *parser) parseStruct(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	fields, err := p.parseFieldBlock()
	if err != nil {
		return err
	}
	s.Structs = append(s.Structs, &Struct{Name: name, Fields: fields})
	return nil
}

func (p *parser) parseFieldBlock() ([]Field, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var fields []Field
	for !(p.tok.kind == tokPunct && p.tok.text == "}") {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, p.expectPunct("}")
}

func (p *parser) parseField() (Field, error) {
	name, err := p.expectIdent()
	if err != nil {
		return Field{}, err
	}
	if err := p.expectPunct(":"); err != nil {
		return Field{}, err
	}
	typ, err := p.parseType()
	if err != nil {
		return Field{}, err
	}
	f := Field{Name: name, Type: typ}
	if p.tok.kind == tokPunct && p.tok.text == "=" {
		if err := p.advance(); err != nil {
			return Field{}, err
		}
		f.Default = p.tok.text
		if err := p.advance(); err != nil {
			return Field{}, err
		}
	}
	if p.tok.kind == tokPunct && p.tok.text == "(" {
		if err := p.advance(); err != nil {
			return Field{}, err
		}
		for !(p.tok.kind == tokPunct && p.tok.text == ")") {
			if p.tok.kind == tokIdent && p.tok.text == "required" {
				f.Required = true
			}
			if err := p.advance(); err != nil {
				return Field{}, err
			}
		}
		if err := p.advance(); err != nil {
			return Field{}, err
		}
	}
	return f, p.expectPunct(";")
}

func (p *parser) parseType() (TypeRef, error) {
	if p.tok.kind == tokPunct && p.tok.text == "[" {
		if err := p.advance(); err != nil {
			return TypeRef{}, err
		}
		inner, err := p.parseBaseType()
		if err != nil {
			return TypeRef{}, err
		}
		if err := p.expectPunct("]"); err != nil {
			return TypeRef{}, err
		}
		inner.IsVector = true
		return inner, nil
	}
	return p.parseBaseType()
}

func (p *parser) parseBaseType() (TypeRef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return TypeRef{}, err
	}
	switch {
	case name == "bool":
		return TypeRef{Kind: TypeBool}, nil
	case name == "string":
		return TypeRef{Kind: TypeString}, nil
	case scalarKeywords[name]:
		return TypeRef{Kind: TypeScalar, Scalar: name}, nil
	default:
		return TypeRef{Kind: TypeNamed, Name: name}, nil
	}
}

func (p *parser) parseEnum(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	base := "int32"
	if p.tok.kind == tokPunct && p.tok.text == ":" {
		if err := p.advance(); err != nil {
			return err
		}
		base, err = p.expectIdent()
		if err != nil {
			return err
		}
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	e := &Enum{Name: name, BaseType: base}
	var next int64
	for !(p.tok.kind == tokPunct && p.tok.text == "}") {
		vname, err := p.expectIdent()
		if err != nil {
			return err
		}
		val := next
		if p.tok.kind == tokPunct && p.tok.text == "=" {
			if err := p.advance(); err != nil {
				return err
			}
			val, err = strconv.ParseInt(p.tok.text, 10, 64)
			if err != nil {
				return p.errorf("bad enum value: %v", err)
			}
			if err := p.advance(); err != nil {
				return err
			}
		}
		e.Values = append(e.Values, EnumValue{Name: vname, Value: val})
		next = val + 1
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	s.Enums = append(s.Enums, e)
	return p.expectPunct("}")
}

func (p *parser) parseUnion(s *Schema) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	u := &Union{Name: name}
	for !(p.tok.kind == tokPunct && p.tok.text == "}") {
		member, err := p.expectIdent()
		if err != nil {
			return err
		}
		u.Members = append(u.Members, member)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	s.Unions = append(s.Unions, u)
	return p.expectPunct("}")
}
