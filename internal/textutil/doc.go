// Package textutil provides filename helpers for episode output paths.
package textutil
