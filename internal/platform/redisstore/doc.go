// Package redisstore implements store.KeyValueStore on top of Redis using
// go-redis. Task records and queue entries travel over a text connection;
// document payloads travel over a separate binary connection.
package redisstore
