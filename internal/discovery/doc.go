// Package discovery находит runs, которые нужно обработать.
package discovery
