package structurer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
)

const rustSource = `use std::collections::HashMap;
use serde::{Deserialize, Serialize};
use crate::db::*;

/// A user.
#[derive(Debug, Clone)]
pub struct User {
    pub id: u64,
    name: Option<String>,
    roles: Vec<Role>,
}

pub enum Role {
    Admin,
    Guest = 2,
}

pub trait Named: Display + Debug {
    fn name(&self) -> String;
}

impl User {
    pub fn new(id: u64) -> Self {
        User { id, name: None, roles: Vec::new() }
    }

    pub async fn load(&self, db: &Db) -> Result<(), Error> {
        db.fetch(self.id).await
    }
}

impl Named for User {
    fn name(&self) -> String {
        format!("{}", self.id)
    }
}

impl Display for Remote {}

fn main() {
    let u = User::new(1);
}
`

func TestRust_Structure(t *testing.T) {
	r := newTestRegistry(t)
	structs := parse(t, r, model.LangRust, "src/model/user.rs", rustSource)
	require.Equal(t, []string{"User", "Role", "Named", "Remote", model.DefaultStructName}, structNames(structs))

	user := structs[0]
	assert.Equal(t, "src::model::user", user.Module)
	assert.Equal(t, []model.CodeImport{
		{Source: "std::collections", Names: []string{"HashMap"}},
		{Source: "serde", Names: []string{"Deserialize", "Serialize"}},
		{Source: "crate::db", Names: []string{"*"}},
	}, user.Imports)

	t.Run("struct", func(t *testing.T) {
		assert.Equal(t, []model.CodeAnnotation{{
			Name:       "derive",
			Parameters: map[string]string{"0": "Debug", "1": "Clone"},
		}}, user.Annotations)
		assert.Equal(t, []string{"Named"}, user.Implements)

		assert.Equal(t, []string{"id", "name", "roles"}, fieldNames(&user))
		assert.Equal(t, []string{"pub"}, user.FindField("id").Modifiers)
		assert.True(t, user.FindField("name").IsNullable)
		assert.True(t, user.FindField("roles").IsArray)

		assert.Equal(t, []string{"new", "load", "name"}, functionNames(&user))
		ctor := user.FindFunction("new")
		assert.True(t, ctor.IsStatic)
		assert.True(t, ctor.IsConstructor)
		assert.Equal(t, "Self", ctor.ReturnType)
		assert.Equal(t, []string{"new"}, ctor.FunctionCalls)

		load := user.FindFunction("load")
		assert.True(t, load.IsAsync)
		assert.False(t, load.IsStatic)
		assert.Equal(t, []model.CodeParameter{{Name: "db", Type: "&Db"}}, load.Parameters)
		assert.Equal(t, []string{"fetch"}, load.FunctionCalls)
	})

	t.Run("enum", func(t *testing.T) {
		role := structs[1]
		assert.Equal(t, model.TypeEnum, role.Type)
		assert.Equal(t, []string{"Admin", "Guest"}, fieldNames(&role))
		assert.Equal(t, "2", role.FindField("Guest").Default)
	})

	t.Run("trait", func(t *testing.T) {
		named := structs[2]
		assert.Equal(t, model.TypeInterface, named.Type)
		assert.Equal(t, []string{"Display", "Debug"}, named.MultipleExtend)
		assert.Equal(t, []string{"name"}, functionNames(&named))
	})

	t.Run("holders", func(t *testing.T) {
		remote := structs[3]
		assert.True(t, remote.IsSynthetic())
		assert.Equal(t, []string{"Display"}, remote.Implements)

		def := structs[4]
		assert.Equal(t, []string{"main"}, functionNames(&def))
		assert.Equal(t, []string{"new"}, def.Functions[0].FunctionCalls)
	})
}
