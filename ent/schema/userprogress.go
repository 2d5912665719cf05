package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// UserProgress holds the schema definition for the UserProgress entity.
// One learner's run of one scenario.
type UserProgress struct {
	ent.Schema
}

// Fields of the UserProgress.
func (UserProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("progress_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable().
			Comment("Required; anonymous turns are rejected at the API boundary"),
		field.String("scenario_id").
			Immutable(),
		field.String("current_scene_id").
			Optional().
			Nillable().
			Comment("Nil only before 'begin'"),
		field.Enum("status").
			Values("waiting_for_begin", "in_progress", "completed", "abandoned").
			Default("waiting_for_begin"),
		field.JSON("scenes_completed", []string{}).
			Optional().
			Comment("Deduplicated, append-only until a fresh run resets it"),
		field.Int("total_attempts").
			Default(0),
		field.Int("hints_used").
			Default(0),
		field.Int("forced_progressions").
			Default(0),
		field.Int("session_count").
			Default(1),
		field.JSON("orchestrator_data", map[string]interface{}{}).
			Optional().
			Comment("Carries the 'state' slot plus the start-time scenario snapshot"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_activity_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the UserProgress.
func (UserProgress) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("scenario", Scenario.Type).
			Ref("progresses").
			Field("scenario_id").
			Unique().
			Required().
			Immutable(),
		edge.To("scene_progresses", SceneProgress.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("conversation_logs", ConversationLog.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the UserProgress.
func (UserProgress) Indexes() []ent.Index {
	return []ent.Index{
		// Invariant (a): at most one progress row per (user, scenario).
		index.Fields("user_id", "scenario_id").
			Unique(),
		index.Fields("status"),
	}
}
