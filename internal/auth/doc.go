// ABOUTME: Package auth implements the dual-credential access-control core:
// ABOUTME: password login, JWT session tokens, API keys, and the request gate
package auth
