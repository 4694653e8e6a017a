// Package worker содержит фоновый воркер накрутки: он опрашивает одобренные
// заявки и добавляет участников из групп-источников в целевые чаты.
package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// За один цикл обрабатывается не больше этого числа заявок. Остальные
// дождутся следующего цикла: порядок по id гарантирует честность.
const requestsPerCycle = 50

// Worker — планировщик циклов обработки. Сами добавления выполняет Deliverer.
type Worker struct {
	store     Store
	deliverer *Deliverer

	pollInterval  time.Duration // пауза между циклами
	errorInterval time.Duration // укороченная пауза после ошибки цикла
	poolSize      int           // число параллельных заявок

	// По одному мьютексу на целевой чат: две заявки на один чат не должны
	// добавлять участников одновременно, иначе обе упрутся во флуд-контроль.
	targetLocks sync.Map // map[string]*sync.Mutex
}

// New создает воркер.
func New(store Store, deliverer *Deliverer, pollInterval, errorInterval time.Duration, poolSize int) *Worker {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Worker{
		store:         store,
		deliverer:     deliverer,
		pollInterval:  pollInterval,
		errorInterval: errorInterval,
		poolSize:      poolSize,
	}
}

// Run крутит циклы обработки до отмены контекста. Запускается в отдельной
// горутине из main.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("Воркер накрутки запущен: интервал %s, параллельных заявок %d.", w.pollInterval, w.poolSize)
	for {
		interval := w.pollInterval
		if err := w.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("Воркер накрутки остановлен.")
				return
			}
			log.Printf("Воркер: ошибка цикла: %v. Следующая попытка через %s.", err, w.errorInterval)
			interval = w.errorInterval
		}
		if !sleepCtx(ctx, interval) {
			log.Println("Воркер накрутки остановлен.")
			return
		}
	}
}

// runCycle обрабатывает одну пачку одобренных заявок.
func (w *Worker) runCycle(ctx context.Context) error {
	requests, err := w.store.ApprovedRequests(requestsPerCycle)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return nil
	}

	pools, err := w.store.ActiveGroupSources()
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		log.Printf("Воркер: %d одобренных заявок, но нет активных групп-источников.", len(requests))
		return nil
	}

	sem := make(chan struct{}, w.poolSize)
	var wg sync.WaitGroup
	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		req := req
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			lock := w.lockForTarget(req.TargetChannel)
			lock.Lock()
			defer lock.Unlock()

			if err := w.deliverer.Process(ctx, req, pools); err != nil && ctx.Err() == nil {
				log.Printf("Воркер: ошибка обработки заявки #%d: %v", req.ID, err)
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) lockForTarget(target string) *sync.Mutex {
	actual, _ := w.targetLocks.LoadOrStore(target, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
