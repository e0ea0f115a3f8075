// Package infra groups the adapters to external systems: SQL storage, the
// OSRM router, MQTT and WebSocket frame sinks, metrics exporters and error
// monitoring. Core packages only see them through their own interfaces.
package infra
