package services

import (
	"context"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/dukex/flowforge/pkg/models"
)

// NextVersionLabel suggests the label for the next version: the patch after the highest
// semantic version among labels. Labels that are not semantic versions are ignored; with none
// left the suggestion is models.InitialVersion. The suggestion never repeats an existing label.
func NextVersionLabel(labels []string) string {
	var highest *semver.Version

	for _, label := range labels {
		v, err := semver.NewVersion(label)
		if err != nil {
			continue
		}

		if highest == nil || v.GreaterThan(highest) {
			highest = v
		}
	}

	if highest == nil {
		if !slices.Contains(labels, models.InitialVersion) {
			return models.InitialVersion
		}

		highest = semver.MustParse(models.InitialVersion)
	}

	next := highest.IncPatch()
	for slices.Contains(labels, next.String()) {
		next = next.IncPatch()
	}

	return next.String()
}

// SuggestNextVersion returns NextVersionLabel for the versions of a live flow.
func (l *Lifecycle) SuggestNextVersion(ctx context.Context, liveFlowID int64) (string, error) {
	flow, err := l.loadLiveFlow(ctx, "SuggestNextVersion", liveFlowID)
	if err != nil {
		return "", err
	}

	return NextVersionLabel(flow.Labels()), nil
}
