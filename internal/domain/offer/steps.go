package offer

// StepData is the validated output of one wizard step.
type StepData interface {
	Step() Step
}

type AddressStep struct {
	Street  string `json:"street" yaml:"street"`
	City    string `json:"city" yaml:"city"`
	State   string `json:"state" yaml:"state"`
	ZipCode string `json:"zip_code" yaml:"zip_code"`
}

func (AddressStep) Step() Step { return StepAddress }

// DetailsStep keeps the raw form strings; numbers are parsed on submission.
type DetailsStep struct {
	Bedrooms     string `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms    string `json:"bathrooms" yaml:"bathrooms"`
	SquareFeet   string `json:"square_feet" yaml:"square_feet"`
	YearBuilt    string `json:"year_built" yaml:"year_built"`
	PropertyType string `json:"property_type" yaml:"property_type"`
	LotSize      string `json:"lot_size" yaml:"lot_size"`
}

func (DetailsStep) Step() Step { return StepDetails }

type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentFloorPlan AttachmentKind = "floor_plan"
)

type Attachment struct {
	Kind      AttachmentKind `json:"kind" yaml:"kind"`
	Name      string         `json:"name" yaml:"name"`
	SizeBytes int64          `json:"size_bytes" yaml:"size_bytes"`
}

type ConditionStep struct {
	Condition       string       `json:"condition" yaml:"condition"`
	AdditionalNotes string       `json:"additional_notes" yaml:"additional_notes"`
	Attachments     []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

func (ConditionStep) Step() Step { return StepCondition }

type ContactStep struct {
	Phone      string `json:"phone" yaml:"phone"`
	Timeline   string `json:"timeline" yaml:"timeline"`
	Motivation string `json:"motivation" yaml:"motivation"`
}

func (ContactStep) Step() Step { return StepContact }

// IntakeForm is the fully accumulated wizard.
type IntakeForm struct {
	Address   AddressStep   `json:"address" yaml:"address"`
	Details   DetailsStep   `json:"details" yaml:"details"`
	Condition ConditionStep `json:"condition" yaml:"condition"`
	Contact   ContactStep   `json:"contact" yaml:"contact"`
}

// Steps returns the form split into wizard order.
func (f IntakeForm) Steps() []StepData {
	return []StepData{f.Address, f.Details, f.Condition, f.Contact}
}
