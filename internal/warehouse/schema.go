package warehouse

func GetUsersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			signup_date TIMESTAMP NOT NULL,
			segment VARCHAR(64) NOT NULL,
			acquisition_channel VARCHAR(64) NOT NULL,
			device_type VARCHAR(32) NOT NULL,
			region VARCHAR(64) NOT NULL,
			use_case VARCHAR(64) NOT NULL,
			plan_type VARCHAR(16) NOT NULL
		);
	`
}

func GetEventsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS user_events (
			event_id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			event_timestamp TIMESTAMP NOT NULL,
			page_type VARCHAR(32),
			edit_duration_min DECIMAL(10, 2),
			collaborators INT
		);
	`
}
