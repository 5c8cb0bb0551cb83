// Package attachment retrieves message attachments through the backend.
//
// Retrieval has two steps:
//
//	download  download_attach(id, thumb, extra)   one call, no retry
//	resolve   decrypt_image(extra, dir)           polled until a path appears
//
// Resolve makes at most timeout calls, sleeping one interval after each
// empty answer. The budget counts attempts, not wall-clock time, so a slow
// backend stretches the real duration beyond timeout seconds.
//
// Every backend call goes through the wcf.Guard separately; the lock is
// never held while sleeping.
package attachment
