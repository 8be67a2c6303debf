package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/structurer"
)

func TestParseBatch_DiagnosticsDoNotStopTheBatch(t *testing.T) {
	e := newEngine(t, WithWorkers(3))
	inputs := []FileInput{
		{Path: "a.go", Content: []byte(goFile), Language: model.LangGo},
		{Path: "B.java", Content: []byte("class B {\x00}"), Language: model.LangJava},
		{Path: "c.cob", Content: []byte("IDENTIFICATION DIVISION."), Language: "cobol"},
		{Path: "d.py", Content: []byte("class D:\n    x = 1\n"), Language: model.LangPython},
	}

	res, err := e.ParseBatch(context.Background(), inputs)
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	assert.Equal(t, "a.go", res.Files[0].Path)
	assert.Equal(t, "d.py", res.Files[1].Path)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, Diagnostic{
		Path:     "B.java",
		Language: model.LangJava,
		Kind:     KindParseFailure,
		Message:  res.Diagnostics[0].Message,
	}, res.Diagnostics[0])
	assert.Equal(t, "c.cob", res.Diagnostics[1].Path)
	assert.Equal(t, KindUnsupportedLanguage, res.Diagnostics[1].Kind)
}

func TestParseBatch_KeepsInputOrder(t *testing.T) {
	e := newEngine(t, WithWorkers(4), WithLanguages(model.LangPython))
	var inputs []FileInput
	for i := range 40 {
		src := fmt.Sprintf("class C%d:\n    pass\n", i)
		inputs = append(inputs, FileInput{Path: fmt.Sprintf("m%02d.py", i), Content: []byte(src), Language: model.LangPython})
	}

	res, err := e.ParseBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, res.Files, len(inputs))
	for i, f := range res.Files {
		assert.Equal(t, inputs[i].Path, f.Path)
		assert.Equal(t, fmt.Sprintf("C%d", i), f.Structs[0].NodeName)
	}
	assert.Empty(t, res.Diagnostics)
}

func TestParseBatch_PanicBecomesDiagnostic(t *testing.T) {
	r := structurer.NewRegistry()
	r.Bind(&fakeProvider{lang: model.LangRust, panics: true})
	e := newEngine(t, WithRegistry(r), WithLanguages(model.LangRust))

	res, err := e.ParseBatch(context.Background(), []FileInput{{Path: "x.rs", Language: model.LangRust}})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindInternal, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Message, "boom")
}

func TestParseBatch_Cancelled(t *testing.T) {
	e := newEngine(t, WithLanguages(model.LangGo))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ParseBatch(ctx, []FileInput{{Path: "a.go", Content: []byte(goFile), Language: model.LangGo}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseBatch_Empty(t *testing.T) {
	e := newEngine(t, WithLanguages(model.LangGo))
	res, err := e.ParseBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Files)
	assert.NotNil(t, res.Diagnostics)
}
