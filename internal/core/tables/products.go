package tables

import "github.com/JonMunkholm/shopclean/internal/core"

func init() {
	registerProducts()
}

func registerProducts() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:       core.TableProducts,
			Label:     "Products",
			UniqueKey: []string{core.ColProductID},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: core.ColProductID, Type: core.FieldInteger, Required: true},
			{Name: core.ColProductName, Type: core.FieldText, Required: true},
			{Name: core.ColCategory, Type: core.FieldText},
			{Name: core.ColBrand, Type: core.FieldText},
			{Name: core.ColPrice, Type: core.FieldMoney},
			{Name: core.ColStockQuantity, Type: core.FieldInteger},
		},
	})
}
