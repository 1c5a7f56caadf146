package models

import (
	"fmt"
	"time"
)

// Version is an immutable snapshot of a draft published into a live flow.
type Version struct {
	ID            int64        `json:"id"`
	Metadata      FlowMetadata `json:"metadata"`
	Cells         []Cell       `json:"cells"`
	SourceDraftID int64        `json:"source_draft_id,omitempty"`
	PublishedAt   time.Time    `json:"published_at"`
}

// Clone returns a deep copy of the version.
func (v Version) Clone() Version {
	v.Cells = cloneCells(v.Cells)

	return v
}

// Fork seeds a new draft from the version. The title is prefixed with "Fork of " and the
// version label restarts at InitialVersion; everything else is copied verbatim.
func (v Version) Fork(draftID int64, now time.Time) Draft {
	draft := NewDraft(draftID, v.Metadata, now)
	draft.Metadata.Title = forkTitlePrefix + v.Metadata.Title
	draft.Metadata.Version = InitialVersion
	draft.Cells = cloneCells(v.Cells)
	draft.NextCellID = maxCellID(draft.Cells) + 1

	return draft
}

// LiveFlow is a published flow with an append-only version history and one live version.
type LiveFlow struct {
	ID          int64     `json:"id"`
	Versions    []Version `json:"versions"`
	LiveVersion string    `json:"live_version"`
	Revision    int64     `json:"revision"` // Incremented by every mutation
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLiveFlow creates a live flow whose only version is first, marked live.
func NewLiveFlow(id int64, first Version, now time.Time) LiveFlow {
	return LiveFlow{
		ID:          id,
		Versions:    []Version{first.Clone()},
		LiveVersion: first.Metadata.Version,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the live flow.
func (l LiveFlow) Clone() LiveFlow {
	versions := make([]Version, len(l.Versions))
	for i, v := range l.Versions {
		versions[i] = v.Clone()
	}

	l.Versions = versions

	return l
}

// Current returns the version marked live.
func (l LiveFlow) Current() (Version, bool) {
	return l.VersionByLabel(l.LiveVersion)
}

// Title returns the title of the live version, falling back to the latest version.
func (l LiveFlow) Title() string {
	if current, ok := l.Current(); ok {
		return current.Metadata.Title
	}

	if len(l.Versions) > 0 {
		return l.Versions[len(l.Versions)-1].Metadata.Title
	}

	return ""
}

// Labels returns the version labels in publication order.
func (l LiveFlow) Labels() []string {
	labels := make([]string, len(l.Versions))
	for i, v := range l.Versions {
		labels[i] = v.Metadata.Version
	}

	return labels
}

// VersionByLabel returns the version whose metadata carries label.
func (l LiveFlow) VersionByLabel(label string) (Version, bool) {
	for _, v := range l.Versions {
		if v.Metadata.Version == label {
			return v.Clone(), true
		}
	}

	return Version{}, false
}

// VersionByID returns the version with the given id.
func (l LiveFlow) VersionByID(versionID int64) (Version, bool) {
	for _, v := range l.Versions {
		if v.ID == versionID {
			return v.Clone(), true
		}
	}

	return Version{}, false
}

// CheckRevision fails with ErrRevisionMismatch when expected is set and differs from the
// current revision.
func (l LiveFlow) CheckRevision(expected *int64) error {
	if expected != nil && *expected != l.Revision {
		return fmt.Errorf("%w: expected %d, current %d", ErrRevisionMismatch, *expected, l.Revision)
	}

	return nil
}

// AppendVersion adds a version without changing the live version.
func (l LiveFlow) AppendVersion(v Version) (LiveFlow, error) {
	if _, exists := l.VersionByLabel(v.Metadata.Version); exists {
		return l, fmt.Errorf("%w: %q", ErrDuplicateVersion, v.Metadata.Version)
	}

	l = l.Clone()
	l.Versions = append(l.Versions, v.Clone())

	return l.touch(), nil
}

// Promote marks label as the live version. Promoting the current live version returns the
// flow unchanged.
func (l LiveFlow) Promote(label string) (LiveFlow, error) {
	if _, ok := l.VersionByLabel(label); !ok {
		return l, fmt.Errorf("%w: %q", ErrVersionNotFound, label)
	}

	if l.LiveVersion == label {
		return l, nil
	}

	l = l.Clone()
	l.LiveVersion = label

	return l.touch(), nil
}

// DeleteVersion removes a version. The live version and the last remaining version are
// protected.
func (l LiveFlow) DeleteVersion(versionID int64) (LiveFlow, error) {
	idx := -1

	for i, v := range l.Versions {
		if v.ID == versionID {
			idx = i

			break
		}
	}

	if idx < 0 {
		return l, fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
	}

	if len(l.Versions) == 1 {
		return l, ErrLastVersionDelete
	}

	if l.Versions[idx].Metadata.Version == l.LiveVersion {
		return l, ErrLiveVersionDelete
	}

	l = l.Clone()
	l.Versions = append(l.Versions[:idx], l.Versions[idx+1:]...)

	return l.touch(), nil
}

func (l LiveFlow) touch() LiveFlow {
	l.Revision++
	l.UpdatedAt = time.Now().UTC()

	return l
}
