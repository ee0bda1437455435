package database

var PgValue = pgValue
