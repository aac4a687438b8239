// Package fence finds fenced code blocks of one language in Markdown text.
//
// A Detector scans a document line by line and returns the Range of every
// block body whose opening fence carries the configured language tag. Fence
// lines themselves are never part of a Range.
//
// Two strategies are available:
//
//   - StrategyToggle: a two-state scanner. A line containing "```"+lang opens
//     a block, the next line containing "```" closes it.
//   - StrategyMarkdown: a three-state scanner that also tracks blocks of other
//     languages, so fence-like text inside them is ignored.
//
// Detection never fails. Unterminated blocks are dropped silently.
package fence
