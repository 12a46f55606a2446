package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

type BillItem struct{ ent.Schema }

func (BillItem) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "bill_items"},
	}
}

func (BillItem) Fields() []ent.Field {
	return []ent.Field{
		field.Int("s_no"),
		field.String("item_name").Default(""),
		field.Float("quantity").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("unit_price").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("item_total").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
	}
}

func (BillItem) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY items -> ONE bill (FK: bill_items.bill_id)
		edge.From("bill", Bill.Type).
			Ref("items").
			Required().
			Unique(),
	}
}
