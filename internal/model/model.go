// Package model defines the canonical structural model shared by every
// language structurer: one CodeDataStruct per type-level declaration, with
// its members, relations and source position.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DataStructType classifies a CodeDataStruct.
type DataStructType string

const (
	TypeClass     DataStructType = "Class"
	TypeEnum      DataStructType = "Enum"
	TypeInterface DataStructType = "Interface"
	TypeMessage   DataStructType = "Message"
)

// Valid reports whether t is one of the four canonical kinds.
func (t DataStructType) Valid() bool {
	switch t {
	case TypeClass, TypeEnum, TypeInterface, TypeMessage:
		return true
	}
	return false
}

// DefaultStructName is the NodeName of the synthetic holder that collects a
// file's free functions.
const DefaultStructName = "default"

// Extension keys set by the structurers.
const (
	ExtSynthetic    = "synthetic"
	ExtSyntaxErrors = "syntaxErrors"
	ExtLanguage     = "language"
)

// CodeField is a field, property, enum constant or variant.
type CodeField struct {
	Name       string   `json:"Name"`
	Type       string   `json:"Type"`
	IsArray    bool     `json:"IsArray"`
	IsNullable bool     `json:"IsNullable"`
	Default    string   `json:"Default"`
	Comment    string   `json:"Comment"`
	Modifiers  []string `json:"Modifiers,omitempty"`
}

// CodeParameter is one formal parameter of a function.
type CodeParameter struct {
	Name string `json:"Name"`
	Type string `json:"Type"`
}

// CodeAnnotation is an annotation, decorator or attribute.
type CodeAnnotation struct {
	Name       string            `json:"Name"`
	Parameters map[string]string `json:"Parameters,omitempty"`
}

// CodeImport is one import statement of a file.
type CodeImport struct {
	Source string   `json:"Source"`
	Names  []string `json:"Names,omitempty"`
	Alias  string   `json:"Alias,omitempty"`
}

// CodeExport is one exported name of a file.
type CodeExport struct {
	Name string `json:"Name"`
	Type string `json:"Type,omitempty"`
}

// CodeFunction is a method, constructor or free function.
type CodeFunction struct {
	Name          string           `json:"Name"`
	ReturnType    string           `json:"ReturnType"`
	Parameters    []CodeParameter  `json:"Parameters"`
	IsStatic      bool             `json:"IsStatic"`
	IsConstructor bool             `json:"IsConstructor"`
	IsAsync       bool             `json:"IsAsync"`
	Decorators    []CodeAnnotation `json:"Decorators"`
	Modifiers     []string         `json:"Modifiers,omitempty"`
	FunctionCalls []string         `json:"FunctionCalls"`
	Position      CodePosition     `json:"Position"`
	Content       string           `json:"Content"`
}

// CodeDataStruct is the canonical record for one type-level declaration.
// Nested declarations live in InnerStructures of their enclosing struct.
type CodeDataStruct struct {
	NodeName        string           `json:"NodeName"`
	Module          string           `json:"Module"`
	Package         string           `json:"Package"`
	FilePath        string           `json:"FilePath"`
	Type            DataStructType   `json:"Type"`
	Fields          []CodeField      `json:"Fields"`
	Functions       []CodeFunction   `json:"Functions"`
	Extend          string           `json:"Extend"`
	MultipleExtend  []string         `json:"MultipleExtend"`
	Implements      []string         `json:"Implements"`
	InnerStructures []CodeDataStruct `json:"InnerStructures"`
	Annotations     []CodeAnnotation `json:"Annotations"`
	Imports         []CodeImport     `json:"Imports"`
	Exports         []CodeExport     `json:"Exports"`
	FunctionCalls   []string         `json:"FunctionCalls"`
	Position        CodePosition     `json:"Position"`
	Content         string           `json:"Content"`
	Extension       map[string]any   `json:"Extension,omitempty"`
}

// ErrInvalidStruct is returned by Validate.
var ErrInvalidStruct = errors.New("invalid code data struct")

// Validate checks the non-optional contract fields, recursively.
func (ds *CodeDataStruct) Validate() error {
	if ds.NodeName == "" {
		return fmt.Errorf("%w: missing NodeName in %s", ErrInvalidStruct, ds.FilePath)
	}
	if !ds.Type.Valid() {
		return fmt.Errorf("%w: %s has type %q", ErrInvalidStruct, ds.NodeName, ds.Type)
	}
	for i := range ds.InnerStructures {
		if err := ds.InnerStructures[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Key identifies the struct within a parse batch.
func (ds *CodeDataStruct) Key() string {
	return ds.FilePath + "#" + ds.Package + "." + ds.NodeName
}

// IsSynthetic reports whether the struct is a holder built by a structurer
// rather than a declaration found in the source.
func (ds *CodeDataStruct) IsSynthetic() bool {
	v, ok := ds.Extension[ExtSynthetic].(bool)
	return ok && v
}

// Walk visits ds and its inner structures depth-first. The qualified name
// joins enclosing NodeNames with ".". Returning false stops the descent into
// the current struct's children.
func (ds *CodeDataStruct) Walk(fn func(qualified string, s *CodeDataStruct) bool) {
	ds.walk("", fn)
}

func (ds *CodeDataStruct) walk(prefix string, fn func(string, *CodeDataStruct) bool) {
	name := ds.NodeName
	if prefix != "" {
		name = prefix + "." + ds.NodeName
	}
	if !fn(name, ds) {
		return
	}
	for i := range ds.InnerStructures {
		ds.InnerStructures[i].walk(name, fn)
	}
}

// FindFunction returns the first function with the given name, or nil.
func (ds *CodeDataStruct) FindFunction(name string) *CodeFunction {
	for i := range ds.Functions {
		if ds.Functions[i].Name == name {
			return &ds.Functions[i]
		}
	}
	return nil
}

// FindField returns the first field with the given name, or nil.
func (ds *CodeDataStruct) FindField(name string) *CodeField {
	for i := range ds.Fields {
		if ds.Fields[i].Name == name {
			return &ds.Fields[i]
		}
	}
	return nil
}

// MarshalStructs encodes structs as JSON. Map keys are sorted by
// encoding/json, so identical inputs produce identical bytes.
func MarshalStructs(structs []CodeDataStruct) ([]byte, error) {
	if structs == nil {
		structs = []CodeDataStruct{}
	}
	return json.Marshal(structs)
}
