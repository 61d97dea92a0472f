package tables

import "github.com/JonMunkholm/shopclean/internal/core"

func init() {
	registerCustomers()
}

func registerCustomers() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:       core.TableCustomers,
			Label:     "Customers",
			UniqueKey: []string{core.ColEmail, core.ColPhone, core.ColName, core.ColSignupDate},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: core.ColCustomerID, Type: core.FieldInteger, Required: true},
			{Name: core.ColName, Type: core.FieldText, Required: true},
			{Name: core.ColEmail, Type: core.FieldEmail},
			{Name: core.ColPhone, Type: core.FieldPhone},
			{Name: core.ColCity, Type: core.FieldText},
			{Name: core.ColState, Type: core.FieldText},
			{Name: core.ColSignupDate, Type: core.FieldDate},
		},
	})
}
