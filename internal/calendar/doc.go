// Package calendar pushes events into a user's Google Calendar.
//
// An Engine loads the user's stored grant, opens a Session through a
// Connector and inserts every event as an all-day entry, strictly in input
// order. The first failed insert aborts the run with a *SyncError; entries
// created before it are left in place.
//
// Example usage:
//
//	engine, err := calendar.NewEngine(calendar.EngineConfig{
//	    Store:     userStore,
//	    Connector: calendar.NewGoogleConnector("primary"),
//	})
//	if err != nil {
//	    return err
//	}
//
//	report, err := engine.Sync(ctx, "jane@uni.edu", list)
//	var syncErr *calendar.SyncError
//	if errors.As(err, &syncErr) {
//	    log.Printf("event %d failed: %v", syncErr.Index, syncErr.Cause)
//	}
package calendar
