package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Scenario holds the schema definition for the Scenario entity.
// An immutable-by-runtime authoring artifact: a case study with an
// ordered timeline of scenes and a cast of personas.
type Scenario struct {
	ent.Schema
}

// Fields of the Scenario.
func (Scenario) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("scenario_id").
			Unique().
			Immutable(),
		field.String("title"),
		field.Text("description"),
		field.Text("challenge").
			Optional(),
		field.String("industry").
			Optional(),
		field.String("student_role").
			Optional(),
		field.JSON("learning_objectives", []string{}).
			Optional().
			Comment("Ordered sequence, graded overall but never per-scene"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Scenario.
func (Scenario) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("scenes", Scene.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("personas", Persona.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("progresses", UserProgress.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}
