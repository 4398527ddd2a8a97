// Package connectors holds adapters that pull documents from outside
// sources. The filesystem connector mirrors a local folder and reports
// changes to it as they happen.
package connectors
