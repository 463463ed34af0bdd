// ABOUTME: Package store provides persistence for users, API keys, settings,
// ABOUTME: assets, and vulnerabilities backed by SQLite
package store
