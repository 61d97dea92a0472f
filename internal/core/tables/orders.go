package tables

import "github.com/JonMunkholm/shopclean/internal/core"

func init() {
	registerOrders()
}

// Orders written by older generators carry order_date instead of
// order_timestamp; both are read, only order_timestamp is written.
func registerOrders() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:       core.TableOrders,
			Label:     "Orders",
			UniqueKey: []string{core.ColOrderID},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: core.ColOrderID, Type: core.FieldInteger, Required: true},
			{Name: core.ColCustomerID, Type: core.FieldInteger, Required: true},
			{Name: core.ColProductID, Type: core.FieldInteger, Required: true},
			{Name: core.ColQuantity, Type: core.FieldInteger},
			{Name: core.ColOrderTS, Type: core.FieldDate, Aliases: []string{core.ColOrderDate}},
			{Name: core.ColPaymentMethod, Type: core.FieldText},
			{Name: core.ColStatus, Type: core.FieldText},
			{Name: core.ColShippingCity, Type: core.FieldText},
			{Name: core.ColOrderValue, Type: core.FieldMoney, Derived: true},
		},
	})
}
