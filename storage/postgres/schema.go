package postgres

import "clientsdb/storage"

// Table definitions must stay compatible with existing client databases.
const (
	createClientTableSQL = `CREATE TABLE IF NOT EXISTS client (
		client_id SERIAL PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL
	)`
	createPhoneTableSQL = `CREATE TABLE IF NOT EXISTS phone (
		phone_id SERIAL PRIMARY KEY,
		phone VARCHAR(15) NULL,
		client_id INTEGER NOT NULL REFERENCES client(client_id)
	)`

	// phone references client, so it has to go first
	dropPhoneTableSQL  = `DROP TABLE phone`
	dropClientTableSQL = `DROP TABLE client`
)

const (
	insertClientSQL = `INSERT INTO client (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING client_id`
	insertPhoneSQL  = `INSERT INTO phone (client_id, phone) VALUES ($1, $2) RETURNING phone_id`

	updateFirstNameSQL = `UPDATE client SET first_name = $1 WHERE client_id = $2`
	updateLastNameSQL  = `UPDATE client SET last_name = $1 WHERE client_id = $2`
	updateEmailSQL     = `UPDATE client SET email = $1 WHERE client_id = $2`
	updatePhonesSQL    = `UPDATE phone SET phone = $1 WHERE client_id = $2`

	deletePhoneSQL        = `DELETE FROM phone WHERE client_id = $1 AND phone = $2`
	deleteClientPhonesSQL = `DELETE FROM phone WHERE client_id = $1`
	deleteClientSQL       = `DELETE FROM client WHERE client_id = $1`

	selectClientSQL = `SELECT client_id, first_name, last_name, email FROM client WHERE client_id = $1`
	selectPhonesSQL = `SELECT phone_id, client_id, phone FROM phone WHERE client_id = $1 ORDER BY phone_id`

	selectClientPhonesSQL = `SELECT c.client_id, c.first_name, c.last_name, c.email, p.phone
		FROM client AS c
		LEFT JOIN phone AS p ON p.client_id = c.client_id
		WHERE c.client_id = $1
		ORDER BY p.phone_id`
)

// lookupSQL resolves a client id for each filter field. The lowest id wins
// when several clients match.
var lookupSQL = map[storage.FilterField]string{
	storage.FilterFirstName: `SELECT client_id FROM client WHERE first_name = $1 ORDER BY client_id LIMIT 1`,
	storage.FilterLastName:  `SELECT client_id FROM client WHERE last_name = $1 ORDER BY client_id LIMIT 1`,
	storage.FilterEmail:     `SELECT client_id FROM client WHERE email = $1 ORDER BY client_id LIMIT 1`,
	storage.FilterPhone:     `SELECT client_id FROM phone WHERE phone = $1 ORDER BY client_id LIMIT 1`,
}
