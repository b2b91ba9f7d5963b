package models

import "time"

// Gender пол пользователя.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// FitnessGoal цель тренировок.
type FitnessGoal string

const (
	GoalWeightLoss     FitnessGoal = "weight_loss"
	GoalMuscleGain     FitnessGoal = "muscle_gain"
	GoalFitness        FitnessGoal = "fitness"
	GoalWellness       FitnessGoal = "wellness"
	GoalRehabilitation FitnessGoal = "rehabilitation"
	GoalOther          FitnessGoal = "other"
)

// FitnessLevel уровень подготовки.
type FitnessLevel string

const (
	LevelBeginner     FitnessLevel = "beginner"
	LevelIntermediate FitnessLevel = "intermediate"
	LevelAdvanced     FitnessLevel = "advanced"
)

// UserProfile фитнес-анкета пользователя. Рост в сантиметрах, вес в килограммах.
// Пока анкета не заполнена, CreatedAt нулевой.
type UserProfile struct {
	UserID            int64        `json:"user_id"`
	Height            *float64     `json:"height"`
	Weight            *float64     `json:"weight"`
	HealthCondition   string       `json:"health_condition"`
	FitnessGoal       FitnessGoal  `json:"fitness_goal,omitempty"`
	FitnessLevel      FitnessLevel `json:"fitness_level,omitempty"`
	Notes             string       `json:"notes"`
	MedicalConditions string       `json:"medical_conditions"`
	EmergencyContact  string       `json:"emergency_contact"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// ProfileUpdate частичное обновление анкеты.
type ProfileUpdate struct {
	Height            *float64      `json:"height" validate:"omitempty,gt=0,lt=1000"`
	Weight            *float64      `json:"weight" validate:"omitempty,gt=0,lt=1000"`
	HealthCondition   *string       `json:"health_condition" validate:"omitempty,max=2000"`
	FitnessGoal       *FitnessGoal  `json:"fitness_goal" validate:"omitempty,oneof=weight_loss muscle_gain fitness wellness rehabilitation other"`
	FitnessLevel      *FitnessLevel `json:"fitness_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Notes             *string       `json:"notes" validate:"omitempty,max=2000"`
	MedicalConditions *string       `json:"medical_conditions" validate:"omitempty,max=2000"`
	EmergencyContact  *string       `json:"emergency_contact" validate:"omitempty,max=100"`
}

// Apply переносит заданные поля обновления в анкету.
func (p *UserProfile) Apply(upd ProfileUpdate) {
	if upd.Height != nil {
		p.Height = upd.Height
	}
	if upd.Weight != nil {
		p.Weight = upd.Weight
	}
	if upd.HealthCondition != nil {
		p.HealthCondition = *upd.HealthCondition
	}
	if upd.FitnessGoal != nil {
		p.FitnessGoal = *upd.FitnessGoal
	}
	if upd.FitnessLevel != nil {
		p.FitnessLevel = *upd.FitnessLevel
	}
	if upd.Notes != nil {
		p.Notes = *upd.Notes
	}
	if upd.MedicalConditions != nil {
		p.MedicalConditions = *upd.MedicalConditions
	}
	if upd.EmergencyContact != nil {
		p.EmergencyContact = *upd.EmergencyContact
	}
}
