// ABOUTME: Package httpapi exposes the REST surface of the vulnscan server
// ABOUTME: Auth endpoints, API key management, assets, vulnerabilities, settings
package httpapi
