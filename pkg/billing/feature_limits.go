package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// Unlimited marks a resource without a cap.
const Unlimited = -1

// Resource is a countable planner entity capped per tier.
type Resource string

const (
	ResourceGoals           Resource = "goals"
	ResourceHabits          Resource = "habits"
	ResourceProjects        Resource = "projects"
	ResourceTasksPerProject Resource = "tasks_per_project"
	ResourceJournalEntries  Resource = "journal_entries"
	ResourceAIRequests      Resource = "ai_requests"
)

// Feature is a capability switched on or off per tier.
type Feature string

const (
	FeatureCalendarSync Feature = "calendar_sync"
	FeatureDataExport   Feature = "data_export"
)

// TierLimits are the caps of one subscription tier.
// Fields the client does not know are kept in Extra and written back unchanged.
type TierLimits struct {
	MaxGoals           int  `json:"maxGoals"`
	MaxHabits          int  `json:"maxHabits"`
	MaxProjects        int  `json:"maxProjects"`
	MaxTasksPerProject int  `json:"maxTasksPerProject"`
	MaxJournalEntries  int  `json:"maxJournalEntries"`
	AIRequestsPerMonth int  `json:"aiRequestsPerMonth"`
	CalendarSync       bool `json:"calendarSync"`
	DataExport         bool `json:"dataExport"`

	Extra map[string]json.RawMessage `json:"-"`
}

// FeatureLimits is the limits document served by /feature-limit.
type FeatureLimits struct {
	Free      TierLimits `json:"free"`
	Premium   TierLimits `json:"premium"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var (
	tierLimitsFields    = jsonFieldNames(reflect.TypeFor[TierLimits]())
	featureLimitsFields = jsonFieldNames(reflect.TypeFor[FeatureLimits]())
)

// Limit returns the cap for res. The second value is false for unknown resources.
func (t TierLimits) Limit(res Resource) (int, bool) {
	switch res {
	case ResourceGoals:
		return t.MaxGoals, true
	case ResourceHabits:
		return t.MaxHabits, true
	case ResourceProjects:
		return t.MaxProjects, true
	case ResourceTasksPerProject:
		return t.MaxTasksPerProject, true
	case ResourceJournalEntries:
		return t.MaxJournalEntries, true
	case ResourceAIRequests:
		return t.AIRequestsPerMonth, true
	default:
		return 0, false
	}
}

// Allows reports whether one more res can be created when current already exist.
// Unknown resources are denied.
func (t TierLimits) Allows(res Resource, current int) bool {
	limit, ok := t.Limit(res)
	if !ok {
		return false
	}
	return limit == Unlimited || current < limit
}

// Enabled reports whether the tier includes feature.
func (t TierLimits) Enabled(feature Feature) bool {
	switch feature {
	case FeatureCalendarSync:
		return t.CalendarSync
	case FeatureDataExport:
		return t.DataExport
	default:
		return false
	}
}

// Validate rejects negative caps other than Unlimited.
func (t TierLimits) Validate() error {
	var errs []error
	for _, res := range []Resource{
		ResourceGoals, ResourceHabits, ResourceProjects,
		ResourceTasksPerProject, ResourceJournalEntries, ResourceAIRequests,
	} {
		if v, _ := t.Limit(res); v < Unlimited {
			errs = append(errs, fmt.Errorf("%s: %d is below %d", res, v, Unlimited))
		}
	}
	return errors.Join(errs...)
}

func (t *TierLimits) UnmarshalJSON(data []byte) error {
	type alias TierLimits
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, tierLimitsFields)
	if err != nil {
		return err
	}
	*t = TierLimits(a)
	t.Extra = extra
	return nil
}

func (t TierLimits) MarshalJSON() ([]byte, error) {
	type alias TierLimits
	known, err := json.Marshal(alias(t))
	if err != nil {
		return nil, err
	}
	return withExtraFields(known, t.Extra)
}

// ForSubscription selects the tier that applies to sub.
// Anything short of an active premium subscription gets the free tier.
func (f *FeatureLimits) ForSubscription(sub *Subscription) TierLimits {
	if f == nil {
		return TierLimits{}
	}
	if sub.IsPremium() {
		return f.Premium
	}
	return f.Free
}

// Validate checks both tiers.
func (f *FeatureLimits) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: limits are required", ErrInvalidFeatureLimits)
	}
	var errs []error
	if err := f.Free.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("free: %w", err))
	}
	if err := f.Premium.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("premium: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFeatureLimits, errors.Join(errs...))
	}
	return nil
}

// UnknownFields lists the fields the client did not recognize, prefixed with
// their tier ("premium.maxTeams"). An empty result means client and server agree
// on the schema.
func (f *FeatureLimits) UnknownFields() []string {
	if f == nil {
		return nil
	}
	var names []string
	for k := range f.Extra {
		names = append(names, k)
	}
	for k := range f.Free.Extra {
		names = append(names, "free."+k)
	}
	for k := range f.Premium.Extra {
		names = append(names, "premium."+k)
	}
	return names
}

func (f *FeatureLimits) UnmarshalJSON(data []byte) error {
	type alias FeatureLimits
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, featureLimitsFields)
	if err != nil {
		return err
	}
	*f = FeatureLimits(a)
	f.Extra = extra
	return nil
}

func (f FeatureLimits) MarshalJSON() ([]byte, error) {
	type alias FeatureLimits
	known, err := json.Marshal(alias(f))
	if err != nil {
		return nil, err
	}
	return withExtraFields(known, f.Extra)
}

// jsonFieldNames returns the JSON names of the encoded fields of struct type t.
func jsonFieldNames(t reflect.Type) map[string]struct{} {
	names := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names[name] = struct{}{}
	}
	return names
}

// unknownFields returns the members of the JSON object data not listed in known.
func unknownFields(data []byte, known map[string]struct{}) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	maps.DeleteFunc(all, func(k string, _ json.RawMessage) bool {
		_, ok := known[k]
		return ok
	})
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// withExtraFields merges extra members into the encoded object known.
// Known fields win over extras with the same name.
func withExtraFields(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(known, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}
