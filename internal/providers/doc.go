// Package providers holds the built-in loader providers.
//
//	WordList     static   configured words per category
//	BufferWords  document words of the open buffer
//	WordFile     file     words from files next to the document
//	Commands     static   executables on $PATH, loaded in the background
//	Directory    path     entries of the document's directory, loaded in the background
//	History      path     words recorded for the document's directory
package providers

import "github.com/atinylittleshell/dyncomplete/internal/completion"

// Categories served by the built-in providers.
const (
	WordCategory     completion.Category = "word"
	CommandCategory  completion.Category = "command-name"
	FilePathCategory completion.Category = "file-path"
	HistoryCategory  completion.Category = "history"
)
