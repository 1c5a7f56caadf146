package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create drafts table
			CREATE TABLE drafts (
				id BIGINT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				author VARCHAR(255) NOT NULL DEFAULT '',
				version VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				cells JSONB NOT NULL DEFAULT '[]',
				next_cell_id BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_drafts_updated_at ON drafts(updated_at);

			-- Create live_flows table
			CREATE TABLE live_flows (
				id BIGINT PRIMARY KEY,
				live_version VARCHAR(255) NOT NULL,
				revision BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Create flow_versions table: immutable snapshots owned by a live flow
			CREATE TABLE flow_versions (
				id BIGINT PRIMARY KEY,
				live_flow_id BIGINT NOT NULL REFERENCES live_flows(id) ON DELETE CASCADE,
				position INT NOT NULL,
				title VARCHAR(255) NOT NULL,
				author VARCHAR(255) NOT NULL DEFAULT '',
				version VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				cells JSONB NOT NULL DEFAULT '[]',
				source_draft_id BIGINT,
				published_at TIMESTAMP WITH TIME ZONE NOT NULL,

				UNIQUE(live_flow_id, version)
			);

			CREATE INDEX idx_flow_versions_live_flow_id ON flow_versions(live_flow_id);
		`,
	}
}
