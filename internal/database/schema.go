package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
// The unique key on seat_reservation(showing_id, seat_id) is what prevents
// double booking; the application-level availability check is only a fast
// path in front of it.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS account (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		username VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		password_modified_at DATETIME NULL,
		profile_modified_at DATETIME NULL,
		UNIQUE KEY uq_account_email (email),
		UNIQUE KEY uq_account_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS account_session (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		ip_address VARCHAR(45) NULL,
		user_agent VARCHAR(512) NULL,
		UNIQUE KEY uq_session_token (token_hash),
		KEY idx_session_sweep (is_active, expires_at),
		KEY idx_session_account (account_id, is_active),
		CONSTRAINT fk_session_account FOREIGN KEY (account_id) REFERENCES account(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS movie (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		duration INT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS room (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		room_id BIGINT UNSIGNED NOT NULL,
		row_num INT UNSIGNED NOT NULL,
		col_num INT UNSIGNED NOT NULL,
		type VARCHAR(16) NOT NULL DEFAULT 'standard',
		UNIQUE KEY uq_seat_position (room_id, row_num, col_num),
		CONSTRAINT fk_seat_room FOREIGN KEY (room_id) REFERENCES room(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS showing (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		movie_id BIGINT UNSIGNED NOT NULL,
		room_id BIGINT UNSIGNED NOT NULL,
		date DATE NOT NULL,
		starttime INT UNSIGNED NOT NULL,
		price INT UNSIGNED NOT NULL,
		CONSTRAINT fk_showing_movie FOREIGN KEY (movie_id) REFERENCES movie(id),
		CONSTRAINT fk_showing_room FOREIGN KEY (room_id) REFERENCES room(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS age_price_rule (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		label VARCHAR(64) NOT NULL,
		agemin INT UNSIGNED NOT NULL,
		agemax INT UNSIGNED NOT NULL,
		factor DECIMAL(6,3) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NULL,
		showing_id BIGINT UNSIGNED NOT NULL,
		email VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		total_price DECIMAL(10,2) NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_booking_account (account_id),
		CONSTRAINT fk_booking_account FOREIGN KEY (account_id) REFERENCES account(id),
		CONSTRAINT fk_booking_showing FOREIGN KEY (showing_id) REFERENCES showing(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS customer (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		age INT UNSIGNED NOT NULL,
		pmr TINYINT(1) NOT NULL DEFAULT 0,
		CONSTRAINT fk_customer_booking FOREIGN KEY (booking_id) REFERENCES booking(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_reservation (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		showing_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		customer_id BIGINT UNSIGNED NOT NULL,
		booking_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_reservation_showing_seat (showing_id, seat_id),
		UNIQUE KEY uq_reservation_customer (customer_id),
		CONSTRAINT fk_reservation_showing FOREIGN KEY (showing_id) REFERENCES showing(id),
		CONSTRAINT fk_reservation_seat FOREIGN KEY (seat_id) REFERENCES seat(id),
		CONSTRAINT fk_reservation_customer FOREIGN KEY (customer_id) REFERENCES customer(id),
		CONSTRAINT fk_reservation_booking FOREIGN KEY (booking_id) REFERENCES booking(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
