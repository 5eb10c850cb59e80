package app

import (
	"sort"

	"github.com/invopop/jsonschema"
)

var requestTypes = map[string]any{
	"create-transfer":  CreateTransferRequest{},
	"update-transfer":  UpdateTransferRequest{},
	"list-transfers":   ListTransfersRequest{},
	"stock-movement":   StockMovementRequest{},
	"create-item":      CreateItemRequest{},
	"create-warehouse": CreateWarehouseRequest{},
	"update-item":      UpdateItemRequest{},
	"update-warehouse": UpdateWarehouseRequest{},
	"login":            LoginRequest{},
}

// RequestSchema returns the JSON schema of a named request body.
func RequestSchema(name string) (*jsonschema.Schema, bool) {
	v, ok := requestTypes[name]
	if !ok {
		return nil, false
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v), true
}

// RequestSchemaNames lists the names accepted by RequestSchema.
func RequestSchemaNames() []string {
	names := make([]string, 0, len(requestTypes))
	for n := range requestTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
