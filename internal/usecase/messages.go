package usecase

import (
	"fmt"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// Publishers maps each active tier to the channel that surfaces it.
type Publishers map[domain.Status]ports.Publisher

func storyMessage(s domain.Story) string {
	return fmt.Sprintf("*<%s|%s>*\nAccuracy: %g | Source: %s", s.URL, s.Title, s.Accuracy, s.Source)
}

func overviewMessage(active int) string {
	return fmt.Sprintf("AI news live overview: %d active stories", active)
}
