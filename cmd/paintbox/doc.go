// Command paintbox runs the Paintbox image service.
//
// Usage:
//
//	paintbox serve                      # start the service
//	paintbox serve --config cfg.yaml    # with a config file
//	paintbox check                      # diagnose the configuration
//	paintbox health                     # probe a running instance
//	paintbox version                    # print version information
package main
