package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataStructType_Valid(t *testing.T) {
	for _, typ := range []DataStructType{TypeClass, TypeEnum, TypeInterface, TypeMessage} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, DataStructType("").Valid())
	assert.False(t, DataStructType("Struct").Valid())
}

func TestCodeDataStruct_Validate(t *testing.T) {
	t.Run("valid with inner", func(t *testing.T) {
		ds := CodeDataStruct{
			NodeName: "Outer",
			Type:     TypeClass,
			InnerStructures: []CodeDataStruct{
				{NodeName: "Inner", Type: TypeEnum},
			},
		}
		require.NoError(t, ds.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		ds := CodeDataStruct{Type: TypeClass, FilePath: "a.java"}
		assert.ErrorIs(t, ds.Validate(), ErrInvalidStruct)
	})

	t.Run("invalid inner type", func(t *testing.T) {
		ds := CodeDataStruct{
			NodeName:        "Outer",
			Type:            TypeClass,
			InnerStructures: []CodeDataStruct{{NodeName: "Inner"}},
		}
		assert.ErrorIs(t, ds.Validate(), ErrInvalidStruct)
	})
}

func TestCodeDataStruct_Walk(t *testing.T) {
	ds := CodeDataStruct{
		NodeName: "A",
		Type:     TypeClass,
		InnerStructures: []CodeDataStruct{
			{NodeName: "B", Type: TypeClass, InnerStructures: []CodeDataStruct{{NodeName: "C", Type: TypeClass}}},
			{NodeName: "D", Type: TypeEnum},
		},
	}

	var names []string
	ds.Walk(func(q string, _ *CodeDataStruct) bool {
		names = append(names, q)
		return true
	})
	assert.Equal(t, []string{"A", "A.B", "A.B.C", "A.D"}, names)

	names = nil
	ds.Walk(func(q string, s *CodeDataStruct) bool {
		names = append(names, q)
		return s.NodeName != "B"
	})
	assert.Equal(t, []string{"A", "A.B", "A.D"}, names)
}

func TestCodeDataStruct_KeyAndSynthetic(t *testing.T) {
	ds := CodeDataStruct{NodeName: "Foo", Package: "com.acme", FilePath: "src/Foo.java", Type: TypeClass}
	assert.Equal(t, "src/Foo.java#com.acme.Foo", ds.Key())
	assert.False(t, ds.IsSynthetic())

	ds.Extension = map[string]any{ExtSynthetic: true}
	assert.True(t, ds.IsSynthetic())
}

func TestMarshalStructs_Deterministic(t *testing.T) {
	structs := []CodeDataStruct{{
		NodeName: "Foo",
		Type:     TypeClass,
		Annotations: []CodeAnnotation{{
			Name:       "Table",
			Parameters: map[string]string{"schema": "s", "name": "foo", "catalog": "c"},
		}},
		Extension: map[string]any{"b": 1, "a": "x"},
	}}

	first, err := MarshalStructs(structs)
	require.NoError(t, err)
	second, err := MarshalStructs(structs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"Parameters":{"catalog":"c","name":"foo","schema":"s"}`)

	empty, err := MarshalStructs(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"src/Foo.java", LangJava, true},
		{"web/app.ts", LangTypeScript, true},
		{"web/App.TSX", LangTypeScript, true},
		{"lib/index.js", LangTypeScript, true},
		{"cmd/main.go", LangGo, true},
		{"pkg/mod.py", LangPython, true},
		{"src/lib.rs", LangRust, true},
		{"README.md", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := LanguageForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLanguages(t *testing.T) {
	got := ParseLanguages([]string{" Go", "java", "go", "", "cobol"})
	assert.Equal(t, []Language{"cobol", LangGo, LangJava}, got)
	assert.True(t, LangGo.Valid())
	assert.False(t, Language("cobol").Valid())
	assert.Len(t, Languages(), 5)
}

func TestTextRange(t *testing.T) {
	outer := TextRange{Start: Point{Line: 1, ByteOffset: 0}, End: Point{Line: 3, Column: 1, ByteOffset: 40}}
	inner := TextRange{Start: Point{Line: 2, Column: 2, ByteOffset: 12}, End: Point{Line: 2, Column: 9, ByteOffset: 19}}
	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
	assert.True(t, inner.Start.Before(inner.End))

	pos := inner.Position()
	assert.Equal(t, CodePosition{StartLine: 2, StartLinePosition: 2, StopLine: 2, StopLinePosition: 9, StartOffset: 12, StopOffset: 19}, pos)
}
