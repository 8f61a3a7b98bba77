// Package plugins loads the plugin file and subscribes the configured plugins
// to the event bus.
//
// A plugin file is YAML:
//
//	plugins:
//	  - name: audit
//	    kind: log
//	    topics: ["*"]
//	    settings:
//	      level: info
//	  - name: orders-hook
//	    kind: webhook
//	    topics: ["orders.*"]
//	    settings:
//	      url: https://hooks.example.com/orders
//	      timeout: 5s
package plugins
