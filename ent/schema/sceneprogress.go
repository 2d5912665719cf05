package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SceneProgress holds the schema definition for the SceneProgress entity.
// One per (progress, scene): the per-scene attempt record.
type SceneProgress struct {
	ent.Schema
}

// Fields of the SceneProgress.
func (SceneProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("scene_progress_id").
			Unique().
			Immutable(),
		field.String("progress_id").
			Immutable(),
		field.String("scene_id").
			Immutable(),
		field.Enum("status").
			Values("not_started", "in_progress", "completed", "skipped").
			Default("not_started"),
		field.Int("attempts").
			Default(0),
		field.Int("hints_used").
			Default(0),
		field.Bool("goal_achieved").
			Default(false),
		field.Bool("forced_progression").
			Default(false),
		field.Int("messages_sent").
			Default(0),
		field.Int("ai_responses").
			Default(0),
		field.Int("goal_achievement_score").
			Optional().
			Nillable().
			Comment("0-100, set by the grader"),
		field.Float("interaction_quality").
			Optional().
			Nillable().
			Comment("0-1"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the SceneProgress.
func (SceneProgress) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("progress", UserProgress.Type).
			Ref("scene_progresses").
			Field("progress_id").
			Unique().
			Required().
			Immutable(),
		edge.From("scene", Scene.Type).
			Ref("scene_progresses").
			Field("scene_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the SceneProgress.
func (SceneProgress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("progress_id", "scene_id").
			Unique(),
		index.Fields("progress_id", "status"),
	}
}
