package db

import "context"

// ChangeChannel is the NOTIFY channel row triggers publish on.
const ChangeChannel = "collab_changes"

// createTables creates the schema if it doesn't exist
func (s *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		id VARCHAR(36) PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS lists (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		owner_id VARCHAR(36) NOT NULL REFERENCES profiles(id),
		categories TEXT[] NOT NULL DEFAULT '{}',
		is_public BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS collaborators (
		list_id VARCHAR(36) NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		user_id VARCHAR(36) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('owner', 'editor', 'viewer')),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (list_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS services (
		id VARCHAR(36) PRIMARY KEY,
		list_id VARCHAR(36) NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL,
		features TEXT[] NOT NULL DEFAULT '{}',
		pricing TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_by VARCHAR(36) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS votes (
		id VARCHAR(36) PRIMARY KEY,
		service_id VARCHAR(36) NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		user_id VARCHAR(36) NOT NULL,
		value SMALLINT NOT NULL CHECK (value IN (-1, 1)),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		UNIQUE (service_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id VARCHAR(36) PRIMARY KEY,
		service_id VARCHAR(36) NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		user_id VARCHAR(36) NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_collaborators_one_owner ON collaborators(list_id) WHERE role = 'owner';
	CREATE INDEX IF NOT EXISTS idx_lists_updated_at ON lists(updated_at);
	CREATE INDEX IF NOT EXISTS idx_services_list_id ON services(list_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_comments_service_id ON comments(service_id, created_at);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return err
	}
	return s.createTriggers(ctx)
}

// createTriggers installs the row-change notifications consumed by the
// realtime hub. Each payload names the table, the operation and the list
// and service the row belongs to.
func (s *PostgresStore) createTriggers(ctx context.Context) error {
	query := `
	CREATE OR REPLACE FUNCTION notify_collab_change() RETURNS trigger AS $$
	DECLARE
		rec RECORD;
		v_list_id TEXT;
		v_service_id TEXT;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			rec := OLD;
		ELSE
			rec := NEW;
		END IF;

		CASE TG_TABLE_NAME
			WHEN 'lists' THEN
				v_list_id := rec.id;
			WHEN 'collaborators' THEN
				v_list_id := rec.list_id;
			WHEN 'services' THEN
				v_list_id := rec.list_id;
				v_service_id := rec.id;
			ELSE
				v_service_id := rec.service_id;
				SELECT s.list_id INTO v_list_id FROM services s WHERE s.id = rec.service_id;
		END CASE;

		PERFORM pg_notify('` + ChangeChannel + `', json_build_object(
			'table', TG_TABLE_NAME,
			'op', TG_OP,
			'list_id', v_list_id,
			'service_id', v_service_id
		)::text);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS lists_notify ON lists;
	CREATE TRIGGER lists_notify AFTER INSERT OR UPDATE OR DELETE ON lists
		FOR EACH ROW EXECUTE FUNCTION notify_collab_change();

	DROP TRIGGER IF EXISTS collaborators_notify ON collaborators;
	CREATE TRIGGER collaborators_notify AFTER INSERT OR UPDATE OR DELETE ON collaborators
		FOR EACH ROW EXECUTE FUNCTION notify_collab_change();

	DROP TRIGGER IF EXISTS services_notify ON services;
	CREATE TRIGGER services_notify AFTER INSERT OR UPDATE OR DELETE ON services
		FOR EACH ROW EXECUTE FUNCTION notify_collab_change();

	DROP TRIGGER IF EXISTS votes_notify ON votes;
	CREATE TRIGGER votes_notify AFTER INSERT OR UPDATE OR DELETE ON votes
		FOR EACH ROW EXECUTE FUNCTION notify_collab_change();

	DROP TRIGGER IF EXISTS comments_notify ON comments;
	CREATE TRIGGER comments_notify AFTER INSERT OR UPDATE OR DELETE ON comments
		FOR EACH ROW EXECUTE FUNCTION notify_collab_change();
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}
