// Package commitmsg renders commit messages from per-change-kind
// templates. Templates use {{variable}} tags expanded with
// valyala/fasttemplate; unknown tags render as empty strings so a
// partially filled variable set still yields a usable message.
package commitmsg
