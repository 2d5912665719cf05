package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Persona holds the schema definition for the Persona entity.
// An AI-played character the learner may address with an @mention.
type Persona struct {
	ent.Schema
}

// Fields of the Persona.
func (Persona) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("persona_id").
			Unique().
			Immutable(),
		field.String("scenario_id").
			Immutable(),
		field.String("name"),
		field.String("mention_id").
			Immutable().
			Comment("Stable, URL-safe id derived from name at creation time"),
		field.String("role").
			Optional(),
		field.Text("background").
			Optional(),
		field.Text("correlation").
			Optional().
			Comment("Persona's correlation to the case"),
		field.JSON("primary_goals", []string{}).
			Optional(),
		field.JSON("personality_traits", map[string]int{}).
			Optional().
			Comment("trait name -> 0-10 intensity"),
		field.Int("declaration_order").
			Comment("Scenario-scoped ordering; breaks mention-resolution ties"),
	}
}

// Edges of the Persona.
func (Persona) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("scenario", Scenario.Type).
			Ref("personas").
			Field("scenario_id").
			Unique().
			Required().
			Immutable(),
		edge.From("scenes", Scene.Type).
			Ref("personas_involved"),
		edge.To("conversation_logs", ConversationLog.Type),
	}
}

// Indexes of the Persona.
func (Persona) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("scenario_id", "mention_id").
			Unique(),
		index.Fields("scenario_id", "declaration_order"),
	}
}
