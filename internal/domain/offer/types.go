package offer

import "strings"

type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single_family"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypeTownhouse    PropertyType = "townhouse"
	PropertyTypeDuplex       PropertyType = "duplex"
	PropertyTypeMobileHome   PropertyType = "mobile_home"
	PropertyTypeOther        PropertyType = "other"
)

var propertyTypes = map[PropertyType]struct{}{
	PropertyTypeSingleFamily: {},
	PropertyTypeCondo:        {},
	PropertyTypeTownhouse:    {},
	PropertyTypeDuplex:       {},
	PropertyTypeMobileHome:   {},
	PropertyTypeOther:        {},
}

func (t PropertyType) Valid() bool {
	_, ok := propertyTypes[t]
	return ok
}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionNeedsWork Condition = "needs_work"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionNeedsWork:
		return true
	}
	return false
}

type Timeline string

const (
	TimelineASAP     Timeline = "asap"
	Timeline30Days   Timeline = "30_days"
	Timeline60Days   Timeline = "60_days"
	Timeline90Days   Timeline = "90_days"
	TimelineFlexible Timeline = "flexible"
)

func (t Timeline) Valid() bool {
	switch t {
	case TimelineASAP, Timeline30Days, Timeline60Days, Timeline90Days, TimelineFlexible:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyStatusActive        PropertyStatus = "active"
	PropertyStatusUnderContract PropertyStatus = "under_contract"
	PropertyStatusSold          PropertyStatus = "sold"
	PropertyStatusWithdrawn     PropertyStatus = "withdrawn"
	PropertyStatusExpired       PropertyStatus = "expired"
)

type InspectionStatus string

const (
	InspectionScheduled  InspectionStatus = "scheduled"
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
	InspectionCancelled  InspectionStatus = "cancelled"
)

type NotificationType string

const (
	NotificationQuoteReady          NotificationType = "quote_ready"
	NotificationInspectionScheduled NotificationType = "inspection_scheduled"
	NotificationOfferMade           NotificationType = "offer_made"
	NotificationOfferAccepted       NotificationType = "offer_accepted"
	NotificationOfferDeclined       NotificationType = "offer_declined"
	NotificationGeneral             NotificationType = "general"
)

// Step numbers of the intake wizard.
type Step int

const (
	StepAddress   Step = 1
	StepDetails   Step = 2
	StepCondition Step = 3
	StepContact   Step = 4
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepDetails:
		return "details"
	case StepCondition:
		return "condition"
	case StepContact:
		return "contact"
	}
	return "unknown"
}

// ParseStep accepts either the step number or its name.
func ParseStep(raw string) (Step, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "address":
		return StepAddress, true
	case "2", "details":
		return StepDetails, true
	case "3", "condition":
		return StepCondition, true
	case "4", "contact":
		return StepContact, true
	}
	return 0, false
}
