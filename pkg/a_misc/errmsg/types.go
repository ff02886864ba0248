package errmsg

import "errors"

var (
	KeyIsEmpty = errors.New("key is empty")

	WriteConflict   = errors.New("write conflict, retry transaction")
	InvalidState    = errors.New("transaction is no longer active")
	ReadOnly        = errors.New("read-only transaction")
	VersionNotFound = errors.New("version does not exist")

	CorruptRecord = errors.New("corrupt record")
	Stopped       = errors.New("db is stopped, can not perform the operation")
)
