package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"
)

type Bill struct{ ent.Schema }

func (Bill) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "bills"},
	}
}

func (Bill) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.UUID("profile_id", uuid.UUID{}),
		field.String("invoice_number").Default("").MaxLen(100),
		field.String("vendor_name").Default("").MaxLen(255),
		// dates kept as text; partially recovered bills may have none
		field.String("purchase_date").Default(""),
		field.String("purchase_time").Default(""),
		field.String("currency").Default("").MaxLen(10),
		field.String("payment_method").Default("").MaxLen(50),
		field.Float("subtotal").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("tax_amount").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("total_amount").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.String("original_currency").Optional().Nillable().MaxLen(10),
		field.Float("original_total_amount").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("exchange_rate").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,6)"}),
		field.String("conversion_warning").Optional().Nillable(),
		field.Time("created_at").Default(time.Now),
	}
}

func (Bill) Edges() []ent.Edge {
	return []ent.Edge{
		// ONE bill -> MANY items
		edge.To("items", BillItem.Type).
			Annotations(entsql.Annotation{OnDelete: entsql.Cascade}),
	}
}

func (Bill) Indexes() []ent.Index {
	return []ent.Index{
		// duplicate-candidate lookups
		index.Fields("profile_id", "vendor_name", "purchase_date"),
	}
}
