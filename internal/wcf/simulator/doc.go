// Package simulator is a wcf.Client that needs no WeChat session.
//
// It serves the logged-in account, contacts and chat rooms from
// configuration, and SQLite files in data_dir as the session databases.
// Attachments are real files: download_attach accepts any extra that
// exists on disk, and decrypt_image answers "" for decrypt_delay polls
// before XOR-decoding a .dat image into the destination directory, the
// way the WeChat client stores them.
//
// Outgoing messages are kept in an in-memory outbox and echoed to message
// handlers as self-sent messages.
package simulator
