// Package mailing prepares simulation emails for delivery: it rewrites HTML
// bodies through the tracking endpoints and abstracts the outbound mail
// provider behind the Gateway interface.
package mailing
