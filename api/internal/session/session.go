// Package session хранит состояние диалога для каждого пользователя.
// Хранилище живёт только в памяти процесса: сессия создаётся командой /start
// или первым фото и перезаписывается целиком при новом старте.
package session

import "sync"

// State — этап диалога.
type State string

const (
	// StateWaitingPhoto — ждём фотографию.
	StateWaitingPhoto State = "waiting_photo"
	// StateWaitingSelection — ждём текст с выбором классов.
	StateWaitingSelection State = "waiting_class_selection"
	// StateSegmenting — выбранные классы переданы в сегментацию.
	StateSegmenting State = "processing_segmentation"
)

// Session — данные одного пользователя между сообщениями.
type Session struct {
	State State

	// ImageBytes — оригинальное фото текущего цикла.
	ImageBytes []byte
	// DetectedClasses — канонические имена найденных классов
	// в порядке обнаружения, без дублей.
	DetectedClasses []string
	// ClassCounts — количество объектов каждого класса.
	ClassCounts map[string]int
	// AnnotatedBytes — фото с рамками.
	AnnotatedBytes []byte
	// SelectedClasses — классы, выбранные пользователем для сегментации.
	SelectedClasses []string
}

// Store — потокобезопасное хранилище сессий с сериализацией операций
// по каждому пользователю: одновременные сообщения одного пользователя
// обрабатываются по очереди, разные пользователи — независимо.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get возвращает сессию пользователя или nil, если её нет.
func (s *Store) Get(userID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Set создаёт или целиком заменяет сессию пользователя.
func (s *Store) Set(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// userLock выдаёт мьютекс конкретного пользователя, создавая его при
// первом обращении. Мьютексы не удаляются: их столько же, сколько
// пользователей за время жизни процесса.
func (s *Store) userLock(userID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithLock выполняет fn под мьютексом пользователя. Весь цикл
// чтение-изменение-запись сессии, включая вызовы инференса, должен
// проходить внутри fn.
func (s *Store) WithLock(userID int64, fn func()) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	fn()
}
