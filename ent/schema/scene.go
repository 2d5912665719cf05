package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Scene holds the schema definition for the Scene entity.
// One linear step in a scenario's timeline.
type Scene struct {
	ent.Schema
}

// Fields of the Scene.
func (Scene) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("scene_id").
			Unique().
			Immutable(),
		field.String("scenario_id").
			Immutable(),
		field.String("title"),
		field.Text("description").
			Optional(),
		field.Text("user_goal").
			Comment("Free text; what the learner is trying to accomplish"),
		field.Text("success_metric").
			Optional().
			Nillable().
			Comment("The graded criterion; may differ from user_goal"),
		field.Int("scene_order").
			Comment("Unique within scenario; linear progression is strict increase"),
		field.Int("timeout_turns").
			Default(15).
			Comment("Hard cap on user turns before forced progression"),
		field.Int("max_attempts").
			Default(5).
			Comment("Validator prompt context only, not enforced here"),
	}
}

// Edges of the Scene.
func (Scene) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("scenario", Scenario.Type).
			Ref("scenes").
			Field("scenario_id").
			Unique().
			Required().
			Immutable(),
		edge.To("personas_involved", Persona.Type),
		edge.To("scene_progresses", SceneProgress.Type),
		edge.To("conversation_logs", ConversationLog.Type),
	}
}

// Indexes of the Scene.
func (Scene) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("scenario_id", "scene_order").
			Unique(),
		index.Fields("scenario_id"),
	}
}
