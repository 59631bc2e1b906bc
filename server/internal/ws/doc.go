// Package ws implements the WebSocket hub for orgpulse-server.
//
// Hub manages a set of connected clients and broadcasts the latest
// organization report to all of them every interval, and immediately when
// the monitor calls Notify after storing a new report.
//
// Message format sent to clients:
//
//	{
//	  "event": "report",
//	  "data":  { "id": ..., "generated_at": ..., "summary": ..., "headcount": ...,
//	             "issues": [...], "units": [...] }
//	}
//
// Until the monitor has produced a report (or after the last one expired)
// nothing is sent; clients simply wait. The endpoint is mounted at /ws/stream.
package ws
