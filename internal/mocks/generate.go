// Package mocks provides mock implementations of the core ports for tests.
//
// The mocks are generated with go.uber.org/mock (gomock). To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockRecordStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), id).Return(rec, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=record_store_mock.go github.com/d0ggzi/celery-clinic/internal/core RecordStore

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_queue_mock.go github.com/d0ggzi/celery-clinic/internal/core TaskQueue

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_state_store_mock.go github.com/d0ggzi/celery-clinic/internal/core TaskStateStore

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=state_reporter_mock.go github.com/d0ggzi/celery-clinic/internal/core StateReporter

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_publisher_mock.go github.com/d0ggzi/celery-clinic/internal/core EventPublisher
