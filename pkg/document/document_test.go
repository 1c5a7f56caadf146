package document

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDraft_StripsIDs(t *testing.T) {
	output := "Executed cell 7\nOutput: Success"
	draft := models.NewDraft(1, models.FlowMetadata{Title: "Nightly load", Version: "2.0.0"}, time.Now())
	draft.Cells = []models.Cell{
		{ID: 4, Code: "a", Server: "Server A", Service: "Service 2"},
		{ID: 7, Code: "b", Dependencies: "a", Server: "Server C", Service: "Service 9", Output: &output},
	}

	doc := FromDraft(draft)

	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.NotContains(t, string(payload), `"id"`)
	assert.Contains(t, string(payload), `"output":"Executed cell 7\nOutput: Success"`)
	assert.Equal(t, "Nightly_load.json", doc.Filename())

	*draft.Cells[1].Output = "changed"
	assert.Equal(t, "Executed cell 7\nOutput: Success", *doc.Cells[1].Output)
}

func TestParse_AssignsSequentialIDs(t *testing.T) {
	data := []byte(`{
		"metadata": {"title": "Imported", "author": "ada", "version": "3.1.0", "description": ""},
		"cells": [
			{"code": "x", "dependencies": "", "server": "Server B", "service": "Service 6"},
			{"id": 99, "code": "y", "server": "Server A", "service": "Service 1", "output": null}
		]
	}`)

	doc, err := Parse(data, models.DefaultCatalog())
	require.NoError(t, err)

	cells := doc.ModelCells()
	require.Len(t, cells, 2)
	assert.Equal(t, int64(1), cells[0].ID)
	assert.Equal(t, int64(2), cells[1].ID)
	assert.Equal(t, "Service 6", cells[0].Service)
	assert.Nil(t, cells[1].Output)
	assert.Equal(t, "Imported", doc.Metadata.Title)
}

func TestParse_RoundTrip(t *testing.T) {
	version := models.Version{
		Metadata: models.FlowMetadata{Title: "T", Author: "a", Version: "1.0.0", Description: "d"},
		Cells: []models.Cell{
			{ID: 5, Code: "a", Server: "Server B", Service: "Service 4"},
		},
	}

	payload, err := json.Marshal(FromVersion(version))
	require.NoError(t, err)

	doc, err := Parse(payload, models.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, version.Metadata, doc.Metadata)
	assert.Equal(t, int64(1), doc.ModelCells()[0].ID)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"metadata":`},
		{"missing cells", `{"metadata": {"title": "a", "version": "1"}}`},
		{"missing metadata", `{"cells": []}`},
		{"cell without server", `{"metadata": {"title": "a", "version": "1"}, "cells": [{"code": "", "service": "Service 1"}]}`},
		{"wrong type", `{"metadata": {"title": 5, "version": "1"}, "cells": []}`},
		{"unknown cell field", `{"metadata": {"title": "a", "version": "1"}, "cells": [{"code": "", "server": "Server A", "service": "Service 1", "colour": "red"}]}`},
		{"unknown server", `{"metadata": {"title": "a", "version": "1"}, "cells": [{"code": "", "server": "Server Z", "service": "Service 1"}]}`},
		{"service of another server", `{"metadata": {"title": "a", "version": "1"}, "cells": [{"code": "", "server": "Server A", "service": "Service 7"}]}`},
		{"title too long", `{"metadata": {"title": "` + strings.Repeat("t", 201) + `", "version": "1"}, "cells": []}`},
		{"author too long", `{"metadata": {"title": "a", "author": "` + strings.Repeat("a", 201) + `", "version": "1"}, "cells": []}`},
		{"version too long", `{"metadata": {"title": "a", "version": "` + strings.Repeat("1", 65) + `"}, "cells": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), models.DefaultCatalog())
			require.ErrorIs(t, err, ErrInvalidDocument)
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestParse_AcceptsMetadataAtLimits(t *testing.T) {
	data := `{"metadata": {"title": "` + strings.Repeat("t", 200) + `", "author": "` + strings.Repeat("a", 200) +
		`", "version": "` + strings.Repeat("1", 64) + `"}, "cells": []}`

	doc, err := Parse([]byte(data), models.DefaultCatalog())
	require.NoError(t, err)
	assert.Len(t, doc.Metadata.Title, 200)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "flow.json", Document{}.Filename())
	assert.Equal(t, "A_b_c.json", Document{Metadata: models.FlowMetadata{Title: " A  b\tc "}}.Filename())
}
