/*
Package operation runs the pipeline stages against a workspace.

A SyncOperation downloads each source's file for the run date, copies the
raw download to the optional archive sink, dispatches every workspace file
to its transform and uploads the results through the transport each source
names. Each stage is recorded in the delivery ledger when one is wired.

	op := operation.NewSyncOperation(operation.Options{
		Sources:    cfg.Sources,
		Date:       date,
		StatusMgr:  status.NewManager(cfg.Data.OutDir, nil),
		Dispatcher: transform.NewDispatcher(cfg.FamilyRegistry(), transform.Options{}),
		Source:     commonapp,
		Sinks:      remote.Sinks{config.TransportSFTP: slate},
	})
	err := operation.NewRunner(&logger, false).Run(ctx, op)

Operations are independent of the transports: tests wire the local
directory transport for both ends.
*/
package operation
