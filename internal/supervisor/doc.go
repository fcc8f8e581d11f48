// Package supervisor owns a worker subprocess on the runner side.
//
// A Supervisor holds the worker's process handle and both pipes. Every Run or
// Bench writes one request and blocks until exactly one reply is read; there is
// never more than one request in flight. Close sends End and reaps the process.
//
// Error handling:
//   - Spawn or pipe failure -> returned from Start unchanged
//   - Err reply from the worker -> *WorkerError (verbatim text)
//   - Reply of the wrong kind -> *UnexpectedReplyError (ErrUnexpectedReply)
//   - Bench sample count differs from the request -> *CountMismatchError
//   - Worker closed stdout before replying -> ErrWorkerQuit
//   - Worker closed stdout partway through a reply -> ErrWorkerQuit wrapping
//     io.ErrUnexpectedEOF
//   - Decode or write failure -> returned wrapped
//
// Teardown:
//   - End is sent; a broken pipe means the worker already exited and is ignored
//   - stdin is closed and the process is waited for
//   - if it has not exited after the grace period its process group gets
//     SIGTERM, then SIGKILL after a second grace period
//   - a non-zero exit status is returned to the caller
package supervisor
