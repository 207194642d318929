package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				input_schema JSONB,
				metadata JSONB,
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
		`,
		2: `
			-- Run records and the messages attached to them
			CREATE TABLE runs (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				metadata JSONB DEFAULT '{}',
				idempotency_key VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_runs_workflow_id ON runs(workflow_id);
			CREATE INDEX idx_runs_status ON runs(status);
			CREATE UNIQUE INDEX idx_runs_idempotency_key ON runs(idempotency_key) WHERE idempotency_key IS NOT NULL;

			CREATE TABLE run_messages (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(255) NOT NULL,
				run_id VARCHAR(255) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				role VARCHAR(50) NOT NULL CHECK (role IN ('user', 'assistant')),
				content TEXT NOT NULL DEFAULT '',
				metadata JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_run_messages_run_role ON run_messages(run_id, role, seq);
		`,
	}
}
