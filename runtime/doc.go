// Package runtime provides the two supported flow runtimes.
//
// Local executes a flow in-process: aggregator steps run inline and foreach
// regions run per collaborator clone, either sequentially or on a bounded
// goroutine pool. Federated runs aggregator steps in-process and hands each
// foreach region to a Dispatcher; the dispatch transport itself is outside
// this module and is consumed only through that interface.
//
// Both runtimes may inject private attributes: state each party holds
// locally (data loaders, secrets) that never crosses the party boundary.
// Private attributes are overlaid on a party's state before its first step
// and stripped again before results transfer.
package runtime
