package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConversationLog holds the schema definition for the ConversationLog entity.
// Append-only turn record. UI-only control events (e.g. SUBMIT_FOR_GRADING)
// are never written here.
type ConversationLog struct {
	ent.Schema
}

// Fields of the ConversationLog.
func (ConversationLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("log_id").
			Unique().
			Immutable(),
		field.String("progress_id").
			Immutable(),
		field.String("scene_id").
			Immutable(),
		field.Enum("message_type").
			Values("user", "ai_persona", "orchestrator", "system", "hint").
			Immutable(),
		field.String("sender_name").
			Immutable(),
		field.String("persona_id").
			Optional().
			Nillable().
			Immutable(),
		field.Text("message_content").
			Immutable(),
		field.Int("message_order").
			Immutable().
			Comment("Strictly increasing within (progress_id, scene_id)"),
		field.Int("attempt_number").
			Immutable(),
		field.Int("processing_time_ms").
			Optional().
			Nillable().
			Immutable(),
		field.String("model_version").
			Optional().
			Nillable().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ConversationLog.
func (ConversationLog) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("progress", UserProgress.Type).
			Ref("conversation_logs").
			Field("progress_id").
			Unique().
			Required().
			Immutable(),
		edge.From("scene", Scene.Type).
			Ref("conversation_logs").
			Field("scene_id").
			Unique().
			Required().
			Immutable(),
		edge.From("persona", Persona.Type).
			Ref("conversation_logs").
			Field("persona_id").
			Unique(),
	}
}

// Indexes of the ConversationLog.
func (ConversationLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("progress_id", "scene_id", "message_order").
			Unique(),
		index.Fields("progress_id", "message_type"),
	}
}
