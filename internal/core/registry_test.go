package core

import "testing"

func clearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}

func TestRegistry(t *testing.T) {
	clearRegistry()
	t.Cleanup(clearRegistry)

	Register(TableDefinition{
		Info: TableInfo{Key: "widgets", Label: "Widgets"},
		FieldSpecs: []FieldSpec{
			{Name: "Widget_ID", Type: FieldInteger, Required: true},
			{Name: "Price", Type: FieldMoney},
		},
	})
	Register(TableDefinition{
		Info: TableInfo{Key: "gadgets", Label: "Gadgets", Columns: []string{"a", "b"}},
	})

	if TableCount() != 2 {
		t.Fatalf("TableCount() = %d, want 2", TableCount())
	}

	def, ok := Get("widgets")
	if !ok {
		t.Fatal("Get(widgets) not found")
	}
	if got := def.Info.Columns; len(got) != 2 || got[0] != "widget_id" || got[1] != "price" {
		t.Errorf("Columns = %v, want [widget_id price]", got)
	}

	if _, ok := Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}

	all := All()
	if len(all) != 2 || all[0].Info.Key != "gadgets" || all[1].Info.Key != "widgets" {
		t.Errorf("All() keys not sorted: %v", all)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	clearRegistry()
	t.Cleanup(clearRegistry)

	Register(TableDefinition{Info: TableInfo{Key: "widgets"}})

	defer func() {
		if recover() == nil {
			t.Error("Register() of a duplicate key should panic")
		}
	}()
	Register(TableDefinition{Info: TableInfo{Key: "widgets"}})
}

func TestMustGetPanicsOnUnknown(t *testing.T) {
	clearRegistry()
	t.Cleanup(clearRegistry)

	defer func() {
		if recover() == nil {
			t.Error("MustGet() of an unknown key should panic")
		}
	}()
	MustGet("nope")
}

func TestFieldTypeString(t *testing.T) {
	tests := []struct {
		typ  FieldType
		want string
	}{
		{FieldText, "text"},
		{FieldInteger, "integer"},
		{FieldDate, "date"},
		{FieldMoney, "money"},
		{FieldEmail, "email"},
		{FieldPhone, "phone"},
		{FieldType(42), "unknown"},
		{FieldType(-1), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("FieldType(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}
