// Package completion holds the vocabulary shared by every part of the completion
// engine: categories, completion items, presentation flags, the document and
// scope-oracle contracts supplied by the host, and the merger that reduces the
// contributions of many loaders into one sorted result.
package completion
