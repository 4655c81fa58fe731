package domain

// Status is the lifecycle tier a story occupies.
type Status string

const (
	StatusFresh               Status = "fresh"
	StatusElevated            Status = "elevated"
	StatusArchival            Status = "archival"
	StatusPermanentlyArchived Status = "permanently_archived"
)

// Tiers lists the active tiers in lifecycle order. The terminal archive is not a tier
// with its own channel.
var Tiers = []Status{StatusFresh, StatusElevated, StatusArchival}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusFresh:
		return 0
	case StatusElevated:
		return 1
	case StatusArchival:
		return 2
	case StatusPermanentlyArchived:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Terminal reports whether the story no longer takes part in lifecycle evaluation.
func (s Status) Terminal() bool {
	return s == StatusPermanentlyArchived
}

// Story is the unit of record kept in the item store.
type Story struct {
	ID             string  `json:"id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	PublishedUTC   string  `json:"published_utc"`
	Status         Status  `json:"status"`
	Accuracy       float64 `json:"accuracy"`
	Corroborations int     `json:"corroborations"`
	Meaning        string  `json:"meaning"`
	Impact         string  `json:"impact"`
	Affected       string  `json:"affected"`
	HandleFresh    string  `json:"handle_fresh"`
	HandleElevated string  `json:"handle_elevated"`
	HandleArchival string  `json:"handle_archival"`
	Replies        int     `json:"replies"`
	Pinned         bool    `json:"pinned"`
	ValueScore     float64 `json:"value_score"`
}

// Handle returns the publication handle for the given tier; empty means not surfaced.
func (s *Story) Handle(tier Status) string {
	switch tier {
	case StatusFresh:
		return s.HandleFresh
	case StatusElevated:
		return s.HandleElevated
	case StatusArchival:
		return s.HandleArchival
	default:
		return ""
	}
}

// SetHandle stores the publication handle for the given tier.
func (s *Story) SetHandle(tier Status, handle string) {
	switch tier {
	case StatusFresh:
		s.HandleFresh = handle
	case StatusElevated:
		s.HandleElevated = handle
	case StatusArchival:
		s.HandleArchival = handle
	}
}

// CurrentHandle is the handle of the tier the story currently occupies.
func (s *Story) CurrentHandle() string {
	return s.Handle(s.Status)
}

// HandleOrigin returns the lowest tier holding the same handle as tier. A handle
// carried forward on promotion still belongs to the channel that issued it.
func (s *Story) HandleOrigin(tier Status) Status {
	handle := s.Handle(tier)
	if handle == "" {
		return tier
	}
	for _, t := range Tiers {
		if t == tier {
			break
		}
		if s.Handle(t) == handle {
			return t
		}
	}
	return tier
}
